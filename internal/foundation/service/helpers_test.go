package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/notify"
	"github.com/cobaltgrid/foundation/internal/foundation/store/drivers/sqlite"
	"github.com/cobaltgrid/foundation/pkg/cryptox"
	"github.com/cobaltgrid/foundation/pkg/idx"
	"github.com/cobaltgrid/foundation/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "service-test-*")
	if err != nil {
		os.Exit(1)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestTokens(t *testing.T, s *sqlite.Store) *TokenService {
	t.Helper()

	signer, err := jwtx.LoadOrGenerateKeyPair(
		filepath.Join(t.TempDir(), "signing.pem"),
		"test-key", "https://auth.test", []string{"foundation"},
	)
	require.NoError(t, err)

	return &TokenService{
		Signer:     signer,
		Store:      s,
		Issuer:     "https://auth.test",
		Audience:   []string{"foundation"},
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
}

// seedUser inserts an active user with the given password.
func seedUser(t *testing.T, s *sqlite.Store, email, password string) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         "Test User",
		Phone:        "+61400000000",
		PasswordHash: hash,
		Active:       true,
		Language:     domain.LanguageEnglish,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	user.CreatedBy = user.ID
	user.UpdatedBy = user.ID

	require.NoError(t, s.Users().CreateUser(context.Background(), user))
	return user
}

// seedAuthOption attaches a two-step configuration to a user.
func seedAuthOption(t *testing.T, s *sqlite.Store, userID string, twoStep, device, otp bool) domain.AuthOption {
	t.Helper()

	now := time.Now().UTC()
	opt := domain.AuthOption{
		ID:                  idx.New().String(),
		UserID:              userID,
		TwoStepVerification: twoStep,
		DeviceAuthenticator: device,
		OTPVerification:     otp,
		CreatedAt:           now,
		UpdatedAt:           now,
		CreatedBy:           userID,
		UpdatedBy:           userID,
	}
	require.NoError(t, s.AuthOptions().CreateAuthOption(context.Background(), opt))
	return opt
}

// captureEnqueuer records enqueued messages, optionally failing every call.
type captureEnqueuer struct {
	messages []notify.Message
	fail     error
}

func (c *captureEnqueuer) Enqueue(msg notify.Message) error {
	if c.fail != nil {
		return c.fail
	}
	c.messages = append(c.messages, msg)
	return nil
}
