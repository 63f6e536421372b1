package http

import (
	"net/http"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/service"
	"github.com/cobaltgrid/foundation/pkg/apix"
	"github.com/cobaltgrid/foundation/pkg/httpx"
)

type SocialLoginHandler struct {
	SocialLoginService *service.SocialLoginService
}

// Handle returns the handler for one provider. Routes are registered per
// provider so the enum never travels in the URL as free text.
func (h *SocialLoginHandler) Handle(provider domain.SocialProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req struct {
			Code string `json:"code"`
		}
		if err := httpx.DecodeJSON(r, &req); err != nil {
			apix.BadRequest("Malformed JSON body.").Write(w)
			return
		}
		if req.Code == "" {
			apix.RequiredField("code").Write(w)
			return
		}

		result, err := h.SocialLoginService.Login(ctx, provider, req.Code)
		if err != nil {
			writeError(w, r, err)
			return
		}

		httpx.NoCache(w)
		httpx.WriteJSON(ctx, w, http.StatusOK, toLoginResponse(result))
	}
}
