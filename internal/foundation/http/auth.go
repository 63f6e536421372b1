package http

import (
	"net/http"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/service"
	"github.com/cobaltgrid/foundation/pkg/apix"
	"github.com/cobaltgrid/foundation/pkg/httpx"
	"github.com/cobaltgrid/foundation/pkg/slogx"
)

// UserResponse is the public shape of an account.
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone,omitempty"`
	Active      bool       `json:"active"`
	Language    string     `json:"language"`
	RoleID      *string    `json:"role_id,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Phone:       u.Phone,
		Active:      u.Active,
		Language:    u.Language,
		RoleID:      u.RoleID,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// LoginResponse carries either a token pair or a second-factor challenge.
type LoginResponse struct {
	User      *UserResponse     `json:"user,omitempty"`
	Tokens    *domain.TokenPair `json:"tokens,omitempty"`
	Challenge *domain.Challenge `json:"challenge,omitempty"`
}

func toLoginResponse(result *domain.LoginResult) LoginResponse {
	resp := LoginResponse{Tokens: result.Tokens, Challenge: result.Challenge}
	if result.User != nil && result.Tokens != nil {
		u := toUserResponse(*result.User)
		resp.User = &u
	}
	return resp
}

type RegisterHandler struct {
	RegistrationService *service.RegistrationService
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email               string `json:"email"`
		Name                string `json:"name"`
		Phone               string `json:"phone"`
		Password            string `json:"password"`
		Language            string `json:"language"`
		RoleID              string `json:"role_id"`
		TwoStepVerification bool   `json:"two_step_verification"`
		DeviceAuthenticator bool   `json:"device_authenticator"`
		OTPVerification     bool   `json:"otp_verification"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}

	result, err := h.RegistrationService.Register(ctx, service.RegisterRequest{
		Email:               req.Email,
		Name:                req.Name,
		Phone:               req.Phone,
		Password:            req.Password,
		Language:            req.Language,
		RoleID:              req.RoleID,
		TwoStepVerification: req.TwoStepVerification,
		DeviceAuthenticator: req.DeviceAuthenticator,
		OTPVerification:     req.OTPVerification,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("account registered", "user_id", result.User.ID)
	httpx.WriteJSON(ctx, w, http.StatusCreated, toLoginResponse(result))
}

type LoginHandler struct {
	AuthService *service.AuthService
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}
	if req.Email == "" {
		apix.RequiredField("email").Write(w)
		return
	}
	if req.Password == "" {
		apix.RequiredField("password").Write(w)
		return
	}

	result, err := h.AuthService.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(ctx, w, http.StatusOK, toLoginResponse(result))
}

type LogoutHandler struct {
	TokenService *service.TokenService
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}
	if req.RefreshToken == "" {
		apix.RequiredField("refresh_token").Write(w)
		return
	}

	if err := h.TokenService.Revoke(ctx, req.RefreshToken); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type RefreshHandler struct {
	TokenService *service.TokenService
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}
	if req.RefreshToken == "" {
		apix.RequiredField("refresh_token").Write(w)
		return
	}

	pair, err := h.TokenService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(ctx, w, http.StatusOK, pair)
}
