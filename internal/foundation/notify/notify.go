// Package notify delivers emails and WhatsApp messages out of band. Callers
// enqueue a message and move on; delivery failures are logged, never
// surfaced back to the original request.
package notify

// Channel selects a delivery mechanism.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

// Attachment is an optional file carried with an email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one delivery job.
type Message struct {
	Channel     Channel
	Recipient   string // email address or E.164 phone number
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender performs the actual delivery for one channel.
type Sender interface {
	Send(msg Message) error
}
