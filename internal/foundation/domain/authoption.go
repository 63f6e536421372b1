package domain

import "time"

// OTP delivery channels.
const (
	OTPMethodEmail = "email"
	OTPMethodSMS   = "sms"
	// OTPMethodVoiceCall is accepted but no dispatcher exists for it yet.
	// TODO: wire a voice provider once one is selected.
	OTPMethodVoiceCall = "voice_call"
)

// AuthOption is the per-user two-step verification configuration, one row
// per user. When TwoStepVerification is set at least one of
// DeviceAuthenticator or OTPVerification must also be set.
type AuthOption struct {
	ID                  string
	UserID              string
	TwoStepVerification bool
	DeviceAuthenticator bool
	OTPVerification     bool
	OTP                 *string // outstanding code, nil when none pending
	OTPExpiresAt        *time.Time
	TOTPSecret          *string // base32 secret for the device authenticator
	CreatedAt           time.Time
	UpdatedAt           time.Time
	CreatedBy           string
	UpdatedBy           string
}

// OTPPending reports whether an unconsumed code is outstanding, expired or
// not.
func (a *AuthOption) OTPPending() bool {
	return a.OTP != nil && *a.OTP != ""
}
