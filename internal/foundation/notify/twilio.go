package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TwilioConfig holds WhatsApp delivery settings for the Twilio REST API.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string // E.164 sender number
	BaseURL    string // override for tests, defaults to the Twilio API
}

const twilioDefaultBaseURL = "https://api.twilio.com"

// TwilioSender delivers WhatsApp messages through Twilio.
type TwilioSender struct {
	cfg    TwilioConfig
	client *http.Client
}

func NewTwilioSender(cfg TwilioConfig) *TwilioSender {
	if cfg.BaseURL == "" {
		cfg.BaseURL = twilioDefaultBaseURL
	}
	return &TwilioSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *TwilioSender) Send(msg Message) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		s.cfg.BaseURL, s.cfg.AccountSID)

	form := url.Values{}
	form.Set("From", "whatsapp:"+s.cfg.From)
	form.Set("To", "whatsapp:"+msg.Recipient)
	form.Set("Body", msg.Body)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("twilio responded %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
