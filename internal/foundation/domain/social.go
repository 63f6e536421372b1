package domain

// SocialProvider selects an external identity provider. Fixed enum, no
// runtime discovery.
type SocialProvider string

const (
	ProviderGoogle SocialProvider = "google"
	ProviderApple  SocialProvider = "apple"
)

// ExternalIdentity is what a provider returns for an authorization code.
type ExternalIdentity struct {
	Provider SocialProvider
	Subject  string // provider-scoped stable ID
	Email    string
	Name     string
}

// TOTPEnrollment is returned when a user enrolls a device authenticator.
type TOTPEnrollment struct {
	Secret  string `json:"secret"`  // base32
	URL     string `json:"url"`     // otpauth:// for QR rendering
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}
