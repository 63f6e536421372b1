package http

import (
	"errors"
	"net/http"

	"github.com/cobaltgrid/foundation/internal/foundation/service"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/cobaltgrid/foundation/pkg/apix"
	"github.com/cobaltgrid/foundation/pkg/slogx"
)

// writeError maps service and store errors onto the wire-level error
// envelope. Unmapped errors are logged and surface as internal-error so raw
// failure details never leak to clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apix.Error
	if errors.As(err, &apiErr) {
		apiErr.Write(w)
		return
	}

	switch {
	case errors.Is(err, service.ErrRequiredField),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrTwoStepConfig):
		apix.BadRequest(err.Error()).Write(w)
	case errors.Is(err, service.ErrEmailExists):
		apix.ErrExistEmail.Write(w)
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefresh),
		errors.Is(err, service.ErrInvalidResetToken):
		apix.ErrInvalidCredentials.Write(w)
	case errors.Is(err, service.ErrAccountDisabled):
		apix.ErrAccountDisabled.Write(w)
	case errors.Is(err, service.ErrAccountInactive):
		apix.ErrAccountInactive.Write(w)
	case errors.Is(err, service.ErrInvalidOTP):
		apix.ErrInvalidOTP.Write(w)
	case errors.Is(err, service.ErrOTPExpired):
		apix.ErrOTPExpired.Write(w)
	case errors.Is(err, service.ErrSendOTP):
		apix.ErrSendOTP.Write(w)
	case errors.Is(err, service.ErrZeroRate):
		apix.BadRequest("The stored exchange rate is zero and cannot be inverted.").Write(w)
	case errors.Is(err, store.ErrReferenced):
		apix.ErrReferentialConflict.Write(w)
	case errors.Is(err, store.ErrNotFound):
		apix.ErrNotFound.Write(w)
	case errors.Is(err, store.ErrAlreadyExists):
		apix.BadRequest("A record with the same unique value already exists.").Write(w)
	default:
		slogx.FromContext(r.Context()).Error("unhandled error", "error", err)
		apix.ErrInternal.Write(w)
	}
}
