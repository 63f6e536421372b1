package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	httpapi "github.com/cobaltgrid/foundation/internal/foundation/http"
	"github.com/cobaltgrid/foundation/internal/foundation/notify"
	"github.com/cobaltgrid/foundation/internal/foundation/service"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/cobaltgrid/foundation/internal/foundation/store/drivers/sqlite"
	"github.com/cobaltgrid/foundation/pkg/cryptox"
	"github.com/cobaltgrid/foundation/pkg/idx"
	"github.com/cobaltgrid/foundation/pkg/jwtx"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "foundation-http-test")
	if err != nil {
		os.Exit(1)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type queueStub struct {
	messages []notify.Message
}

func (q *queueStub) Enqueue(msg notify.Message) error {
	q.messages = append(q.messages, msg)
	return nil
}

// newTestServer boots the full router against an in-memory store, the same
// wiring the application performs at startup.
func newTestServer(t *testing.T) (*httptest.Server, store.Store, *queueStub) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	keys, err := jwtx.LoadOrGenerateKeyPair(
		filepath.Join(t.TempDir(), "signing.pem"),
		"test-key", "https://auth.test", []string{"foundation"},
	)
	require.NoError(t, err)

	tokens := &service.TokenService{
		Signer:     keys,
		Store:      st,
		Issuer:     "https://auth.test",
		Audience:   []string{"foundation"},
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
	auth := &service.AuthService{Store: st, Tokens: tokens}
	queue := &queueStub{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := httpapi.NewRouter(keys, "test", st, logger)
	router.AuthService = auth
	router.TokenService = tokens
	router.RegistrationService = &service.RegistrationService{Store: st, Tokens: tokens, Dispatch: queue}
	router.OTPService = &service.OTPService{Store: st, Auth: auth, Dispatch: queue, TTL: 5 * time.Minute}
	router.TOTPService = &service.TOTPService{Store: st, Auth: auth, Issuer: "https://auth.test"}
	router.SocialLoginService = &service.SocialLoginService{
		Providers: map[domain.SocialProvider]service.Provider{},
		Store:     st, Tokens: tokens, Dispatch: queue,
	}
	router.PasswordResetService = &service.PasswordResetService{
		Store: st, Tokens: tokens, Dispatch: queue,
		TTL: 30 * time.Minute, LinkBase: "https://app.test/reset",
	}
	router.UserService = &service.UserService{Store: st}
	router.PermissionService = &service.PermissionService{Store: st}
	router.MenuService = &service.MenuService{Store: st}
	router.CurrencyService = &service.CurrencyService{Store: st}
	router.Dispatch = queue
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv, st, queue
}

// doJSON issues a request with an optional bearer token and decodes the
// response body into out when out is non-nil.
func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body, out any) *http.Response {
	t.Helper()

	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, srv.URL+path, buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

type tokenPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type loginPayload struct {
	User *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Tokens    *tokenPayload `json:"tokens"`
	Challenge *struct {
		TwoStepVerification bool `json:"two_step_verification"`
	} `json:"challenge"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestRegisterAndLoginFlow(t *testing.T) {
	srv, _, queue := newTestServer(t)

	var registered loginPayload
	resp := doJSON(t, srv, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":    "Alice@Example.com",
		"name":     "Alice",
		"password": "correct horse battery",
	}, &registered)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotNil(t, registered.Tokens)
	require.NotEmpty(t, registered.Tokens.AccessToken)
	require.Equal(t, "alice@example.com", registered.User.Email)

	t.Run("welcome email enqueued", func(t *testing.T) {
		require.NotEmpty(t, queue.messages)
		require.Equal(t, notify.ChannelEmail, queue.messages[0].Channel)
		require.Equal(t, "alice@example.com", queue.messages[0].Recipient)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		var apiErr errorPayload
		resp := doJSON(t, srv, http.MethodPost, "/v1/auth/register", "", map[string]any{
			"email":    "ALICE@example.com",
			"name":     "Alice Again",
			"password": "correct horse battery",
		}, &apiErr)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "exist-email", apiErr.Code)
	})

	var login loginPayload
	resp = doJSON(t, srv, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "correct horse battery",
	}, &login)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, login.Tokens)
	require.Nil(t, login.Challenge)

	t.Run("bearer token grants access", func(t *testing.T) {
		var list struct {
			Users []json.RawMessage `json:"users"`
		}
		resp := doJSON(t, srv, http.MethodGet, "/v1/users", login.Tokens.AccessToken, nil, &list)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, list.Users, 1)
	})

	t.Run("missing bearer token is rejected", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodGet, "/v1/users", "", nil, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("two-step can be enabled after signup", func(t *testing.T) {
		var opts struct {
			TwoStepVerification bool `json:"two_step_verification"`
			OTPVerification     bool `json:"otp_verification"`
		}
		resp := doJSON(t, srv, http.MethodPut, "/v1/users/"+registered.User.ID+"/auth_options",
			login.Tokens.AccessToken, map[string]any{
				"two_step_verification": true,
				"otp_verification":      true,
			}, &opts)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.True(t, opts.TwoStepVerification)

		var challenged loginPayload
		resp = doJSON(t, srv, http.MethodPost, "/v1/auth/login", "", map[string]any{
			"email":    "alice@example.com",
			"password": "correct horse battery",
		}, &challenged)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Nil(t, challenged.Tokens)
		require.NotNil(t, challenged.Challenge)
	})

	t.Run("enabling two-step without a factor is rejected", func(t *testing.T) {
		var apiErr errorPayload
		resp := doJSON(t, srv, http.MethodPut, "/v1/users/"+registered.User.ID+"/auth_options",
			login.Tokens.AccessToken, map[string]any{
				"two_step_verification": true,
			}, &apiErr)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "invalid-request", apiErr.Code)
	})

	t.Run("logout revokes the refresh token", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodPost, "/v1/auth/logout", login.Tokens.AccessToken, map[string]any{
			"refresh_token": login.Tokens.RefreshToken,
		}, nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		var apiErr errorPayload
		resp = doJSON(t, srv, http.MethodPost, "/v1/auth/token/refresh", "", map[string]any{
			"refresh_token": login.Tokens.RefreshToken,
		}, &apiErr)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "invalid-credentials", apiErr.Code)
	})
}

func TestRoleListingVisibility(t *testing.T) {
	srv, st, _ := newTestServer(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, r := range []domain.Role{
		{ID: idx.New().String(), Name: "member", VisibleInSignup: true},
		{ID: idx.New().String(), Name: "auditor", VisibleInSignup: false},
	} {
		r.CreatedAt, r.UpdatedAt = now, now
		r.CreatedBy, r.UpdatedBy = "system", "system"
		require.NoError(t, st.Roles().CreateRole(ctx, r))
	}

	var list struct {
		Roles []struct {
			Name            string `json:"name"`
			VisibleInSignup bool   `json:"visible_in_signup"`
		} `json:"roles"`
	}

	t.Run("anonymous callers see the signup subset", func(t *testing.T) {
		resp := doJSON(t, srv, http.MethodGet, "/v1/roles", "", nil, &list)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, list.Roles, 1)
		require.Equal(t, "member", list.Roles[0].Name)
	})

	t.Run("authenticated callers see every role", func(t *testing.T) {
		var registered loginPayload
		resp := doJSON(t, srv, http.MethodPost, "/v1/auth/register", "", map[string]any{
			"email":    "staff@example.com",
			"name":     "Staff",
			"password": "correct horse battery",
		}, &registered)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = doJSON(t, srv, http.MethodGet, "/v1/roles", registered.Tokens.AccessToken, nil, &list)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, list.Roles, 2)
	})
}

func TestCurrencyEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var registered loginPayload
	resp := doJSON(t, srv, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":    "treasury@example.com",
		"name":     "Treasury",
		"password": "correct horse battery",
	}, &registered)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token := registered.Tokens.AccessToken

	var usd, eur struct {
		ID        string `json:"id"`
		Code      string `json:"code"`
		IsDefault bool   `json:"is_default"`
	}
	resp = doJSON(t, srv, http.MethodPost, "/v1/currencies", token, map[string]any{
		"name": "US Dollar", "code": "usd", "symbol": "$", "is_default": true,
	}, &usd)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "USD", usd.Code)
	require.True(t, usd.IsDefault)

	resp = doJSON(t, srv, http.MethodPost, "/v1/currencies", token, map[string]any{
		"name": "Euro", "code": "EUR", "symbol": "€",
	}, &eur)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPost, "/v1/currency_rates", token, map[string]any{
		"from_id": eur.ID, "to_id": usd.ID,
		"buy_rate": "1.10", "sell_rate": "1.12",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	t.Run("convert applies the buy rate", func(t *testing.T) {
		var converted struct {
			Result string `json:"result"`
		}
		resp := doJSON(t, srv, http.MethodPost, "/v1/currencies/convert", token, map[string]any{
			"amount": "100", "from_id": eur.ID, "to_id": usd.ID,
		}, &converted)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "110", converted.Result)
	})

	t.Run("delete is blocked while rates reference the currency", func(t *testing.T) {
		var apiErr errorPayload
		resp := doJSON(t, srv, http.MethodDelete, "/v1/currencies/"+eur.ID, token, nil, &apiErr)
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		require.Equal(t, "referential-conflict", apiErr.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}

	resp := doJSON(t, srv, http.MethodGet, "/livez", "", nil, &health)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "test", health.Version)

	resp = doJSON(t, srv, http.MethodGet, "/readyz", "", nil, &health)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", health.Status)
}
