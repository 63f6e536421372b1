package app

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings, parsed from the environment.
type Config struct {
	Issuer   string   `env:"FOUNDATION_ISSUER" envDefault:"foundation"`
	Audience []string `env:"FOUNDATION_AUDIENCE" envDefault:"foundation"`

	DatabaseFile   string `env:"FOUNDATION_DATABASE_FILE" envDefault:"foundation.db"`
	PepperFile     string `env:"FOUNDATION_PEPPER_FILE" envDefault:"pepper"`
	SigningKeyFile string `env:"FOUNDATION_SIGNING_KEY_FILE" envDefault:"signing.pem"`
	SigningKeyID   string `env:"FOUNDATION_SIGNING_KEY_ID" envDefault:"foundation-1"`

	AccessTokenTTL  time.Duration `env:"FOUNDATION_ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"FOUNDATION_REFRESH_TOKEN_TTL" envDefault:"720h"`
	OTPTTL          time.Duration `env:"FOUNDATION_OTP_TTL" envDefault:"5m"`
	ResetTTL        time.Duration `env:"FOUNDATION_RESET_TTL" envDefault:"30m"`
	ResetLinkBase   string        `env:"FOUNDATION_RESET_LINK_BASE" envDefault:"http://localhost:8080/reset"`

	// SMTP delivery for email notifications.
	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM"`

	// Twilio delivery for WhatsApp notifications.
	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFrom       string `env:"TWILIO_FROM"` // E.164 sender number

	// Social login providers.
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
	AppleClientID      string `env:"APPLE_CLIENT_ID"`
	AppleClientSecret  string `env:"APPLE_CLIENT_SECRET"`
	AppleRedirectURL   string `env:"APPLE_REDIRECT_URL"`

	Env                  string        `env:"ENV" envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                 int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
	DispatchQueueSize    int           `env:"DISPATCH_QUEUE_SIZE" envDefault:"256"`
}

// LoadConfig parses the environment into a Config.
func LoadConfig() (Config, error) {
	return env.ParseAs[Config]()
}
