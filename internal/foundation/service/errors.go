package service

import "errors"

// Sentinel errors shared across services. The HTTP layer maps each to a
// fixed machine-readable code.
var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountDisabled    = errors.New("account_disabled")
	ErrAccountInactive    = errors.New("account_inactive")
	ErrInvalidOTP         = errors.New("invalid_otp")
	ErrOTPExpired         = errors.New("otp_expired")
	ErrSendOTP            = errors.New("send_otp_failed")
	ErrEmailExists        = errors.New("email_exists")
	ErrRequiredField      = errors.New("required_field")
	ErrWeakPassword       = errors.New("weak_password")
	ErrTwoStepConfig      = errors.New("two_step_requires_a_second_factor")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrInvalidResetToken  = errors.New("invalid_reset_token")
	ErrZeroRate           = errors.New("zero_buy_rate")
)
