package domain

import "time"

// Supported interface languages.
const (
	LanguageEnglish = "en"
	LanguageFrench  = "fr"
	LanguageGerman  = "de"
	LanguageItalian = "it"
)

type User struct {
	ID           string
	Email        string // unique, stored lowercase
	Name         string
	Phone        string // E.164, used for SMS/WhatsApp delivery
	PasswordHash string // argon2 encoded, empty for social-only accounts
	Active       bool
	Language     string
	RoleID       *string // nullable FK to roles
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CreatedBy    string // acting identity, never ambient state
	UpdatedBy    string
}
