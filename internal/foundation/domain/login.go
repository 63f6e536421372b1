package domain

// Challenge is returned when two-step verification is enabled and the caller
// must complete a second factor before tokens are issued.
type Challenge struct {
	TwoStepVerification bool `json:"two_step_verification"` // always true
	DeviceAuthenticator bool `json:"device_authenticator"`
	OTPVerification     bool `json:"otp_verification"`
}

// LoginResult is the outcome of a credential check: either Tokens (with
// User) or Challenge is set, never both.
type LoginResult struct {
	User      *User
	Tokens    *TokenPair
	Challenge *Challenge
}

// Authenticated reports whether the flow finished with tokens issued.
func (r *LoginResult) Authenticated() bool {
	return r.Tokens != nil
}
