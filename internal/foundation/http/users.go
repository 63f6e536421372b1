package http

import (
	"net/http"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/service"
	"github.com/cobaltgrid/foundation/pkg/apix"
	"github.com/cobaltgrid/foundation/pkg/httpx"
)

type UsersHandler struct {
	UserService *service.UserService
}

func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.UserService.ListUsers(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u)
	}
	httpx.WriteJSON(ctx, w, http.StatusOK, map[string]any{"users": out})
}

func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.UserService.GetUser(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(ctx, w, http.StatusOK, toUserResponse(user))
}

func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email    string  `json:"email"`
		Name     string  `json:"name"`
		Phone    string  `json:"phone"`
		Active   bool    `json:"active"`
		Language string  `json:"language"`
		RoleID   *string `json:"role_id"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}

	err := h.UserService.UpdateUser(ctx, httpx.UserID(ctx), domain.User{
		ID:       r.PathValue("id"),
		Email:    req.Email,
		Name:     req.Name,
		Phone:    req.Phone,
		Active:   req.Active,
		Language: req.Language,
		RoleID:   req.RoleID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.UserService.DeleteUser(ctx, httpx.UserID(ctx), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AuthOptionsResponse is the public shape of a two-step configuration.
type AuthOptionsResponse struct {
	TwoStepVerification bool `json:"two_step_verification"`
	DeviceAuthenticator bool `json:"device_authenticator"`
	OTPVerification     bool `json:"otp_verification"`
}

// HandleUpdateAuthOptions replaces the two-step configuration of a user.
func (h *UsersHandler) HandleUpdateAuthOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AuthOptionsResponse
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}

	opt, err := h.UserService.UpdateAuthOptions(ctx, httpx.UserID(ctx), r.PathValue("id"),
		req.TwoStepVerification, req.DeviceAuthenticator, req.OTPVerification)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(ctx, w, http.StatusOK, AuthOptionsResponse{
		TwoStepVerification: opt.TwoStepVerification,
		DeviceAuthenticator: opt.DeviceAuthenticator,
		OTPVerification:     opt.OTPVerification,
	})
}

type RolesHandler struct {
	UserService *service.UserService
}

// RoleResponse is the public shape of a role.
type RoleResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	VisibleInSignup bool   `json:"visible_in_signup"`
}

// HandleList returns every role for authenticated callers; anonymous callers
// only see roles offered on the signup form.
func (h *RolesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	signupOnly := httpx.UserID(ctx) == ""
	roles, err := h.UserService.ListRoles(ctx, signupOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]RoleResponse, len(roles))
	for i, role := range roles {
		out[i] = RoleResponse{ID: role.ID, Name: role.Name, VisibleInSignup: role.VisibleInSignup}
	}
	httpx.WriteJSON(ctx, w, http.StatusOK, map[string]any{"roles": out})
}

func (h *RolesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Name            string `json:"name"`
		VisibleInSignup bool   `json:"visible_in_signup"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}

	role, err := h.UserService.CreateRole(ctx, httpx.UserID(ctx), domain.Role{
		Name:            req.Name,
		VisibleInSignup: req.VisibleInSignup,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(ctx, w, http.StatusCreated, RoleResponse{
		ID: role.ID, Name: role.Name, VisibleInSignup: role.VisibleInSignup,
	})
}

func (h *RolesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Name            string `json:"name"`
		VisibleInSignup bool   `json:"visible_in_signup"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}

	err := h.UserService.UpdateRole(ctx, httpx.UserID(ctx), domain.Role{
		ID:              r.PathValue("id"),
		Name:            req.Name,
		VisibleInSignup: req.VisibleInSignup,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RolesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.UserService.DeleteRole(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
