package http

import (
	"net/http"

	"github.com/cobaltgrid/foundation/internal/foundation/service"
	"github.com/cobaltgrid/foundation/pkg/apix"
	"github.com/cobaltgrid/foundation/pkg/httpx"
)

type PasswordResetHandler struct {
	PasswordResetService *service.PasswordResetService
}

// HandleRequest always answers 200 for well-formed requests so the endpoint
// cannot be used to probe which emails exist.
func (h *PasswordResetHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email string `json:"email"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}
	if req.Email == "" {
		apix.RequiredField("email").Write(w)
		return
	}

	if err := h.PasswordResetService.Request(ctx, req.Email); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(ctx, w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *PasswordResetHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}
	if req.Token == "" {
		apix.RequiredField("token").Write(w)
		return
	}
	if req.Password == "" {
		apix.RequiredField("password").Write(w)
		return
	}

	if err := h.PasswordResetService.Confirm(ctx, req.Token, req.Password); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
