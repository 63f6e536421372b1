// Package apix defines the wire-level error envelope shared by all HTTP
// handlers. Every failure surfaces as a fixed machine-readable code plus a
// human-readable message, never a raw internal error.
package apix

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Machine-readable error codes.
const (
	CodeRequiredField       = "required-field"
	CodeExistEmail          = "exist-email"
	CodeInvalidCredentials  = "invalid-credentials"
	CodeAccountDisabled     = "account-disabled"
	CodeAccountInactive     = "account-inactive"
	CodeInvalidOTP          = "invalid-otp"
	CodeOTPExpired          = "otp-expired"
	CodeSendOTPError        = "send-otp-error"
	CodeReferentialConflict = "referential-conflict"
	CodeNotFound            = "not-found"
	CodeInternalError       = "internal-error"
	CodeInvalidRequest      = "invalid-request"
)

// Error is the JSON error body. Status is transported in the HTTP status
// line, not the payload.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Write renders the error to the response.
func (e *Error) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(e)
}

// Canonical errors, one per code. Message text is stable so clients may key
// off either field.
var (
	ErrRequiredField = &Error{
		Status: http.StatusBadRequest, Code: CodeRequiredField,
		Message: "A required field is missing or empty.",
	}
	ErrExistEmail = &Error{
		Status: http.StatusBadRequest, Code: CodeExistEmail,
		Message: "An account with this email already exists.",
	}
	ErrInvalidCredentials = &Error{
		Status: http.StatusUnauthorized, Code: CodeInvalidCredentials,
		Message: "Email or password is incorrect.",
	}
	ErrAccountDisabled = &Error{
		Status: http.StatusForbidden, Code: CodeAccountDisabled,
		Message: "This account has been disabled.",
	}
	ErrAccountInactive = &Error{
		Status: http.StatusForbidden, Code: CodeAccountInactive,
		Message: "This account is not active.",
	}
	ErrInvalidOTP = &Error{
		Status: http.StatusBadRequest, Code: CodeInvalidOTP,
		Message: "The one-time code is not valid.",
	}
	ErrOTPExpired = &Error{
		Status: http.StatusRequestTimeout, Code: CodeOTPExpired,
		Message: "The one-time code has expired. Request a new one.",
	}
	ErrSendOTP = &Error{
		Status: http.StatusInternalServerError, Code: CodeSendOTPError,
		Message: "Failed to send the one-time code.",
	}
	ErrReferentialConflict = &Error{
		Status: http.StatusConflict, Code: CodeReferentialConflict,
		Message: "This record is referenced by other records and cannot be deleted.",
	}
	ErrNotFound = &Error{
		Status: http.StatusNotFound, Code: CodeNotFound,
		Message: "The requested resource does not exist.",
	}
	ErrInternal = &Error{
		Status: http.StatusInternalServerError, Code: CodeInternalError,
		Message: "An internal error occurred.",
	}
)

// RequiredField reports a specific missing field by name.
func RequiredField(field string) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    CodeRequiredField,
		Message: fmt.Sprintf("The %s field is required.", field),
	}
}

// BadRequest reports a malformed payload.
func BadRequest(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeInvalidRequest, Message: msg}
}
