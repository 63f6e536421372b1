package http

import (
	"net/http"

	"github.com/cobaltgrid/foundation/internal/foundation/service"
	"github.com/cobaltgrid/foundation/pkg/apix"
	"github.com/cobaltgrid/foundation/pkg/httpx"
)

type OTPHandler struct {
	OTPService *service.OTPService
}

// HandleGenerate re-checks credentials and sends a one-time code through the
// requested channel.
func (h *OTPHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Method   string `json:"method"`
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
	if req.Method == "" {
		apix.RequiredField("method").Write(w)
		return
	}

	if err := h.OTPService.Issue(ctx, req.Email, req.Password, req.Method); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(ctx, w, http.StatusOK, map[string]string{"status": "sent"})
}

// HandleVerify consumes a code and completes the two-step login.
func (h *OTPHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		OTP string `json:"otp"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		apix.BadRequest("Malformed JSON body.").Write(w)
		return
	}
	if req.OTP == "" {
		apix.RequiredField("otp").Write(w)
		return
	}

	result, err := h.OTPService.Verify(ctx, req.OTP)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(ctx, w, http.StatusOK, toLoginResponse(result))
}

type TOTPHandler struct {
	TOTPService *service.TOTPService
}

// HandleVerify completes the device-authenticator branch of a two-step login.
func (h *TOTPHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Code     string `json:"code"`
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
	if req.Code == "" {
		apix.RequiredField("code").Write(w)
		return
	}

	result, err := h.TOTPService.Verify(ctx, req.Email, req.Password, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(ctx, w, http.StatusOK, toLoginResponse(result))
}

// HandleEnroll generates a fresh authenticator secret for the caller.
func (h *TOTPHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	enrollment, err := h.TOTPService.Enroll(ctx, httpx.UserID(ctx))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(ctx, w, http.StatusOK, enrollment)
}
