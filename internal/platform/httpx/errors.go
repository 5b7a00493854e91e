// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// RespondError maps ledger errors to HTTP responses using RFC7807. Unknown
// errors become a bare 500 so storage details never reach the client.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, KindValidation, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrUnbalanced):
		Problem(w, http.StatusUnprocessableEntity, KindUnbalanced, "Unbalanced Journal", err.Error())
	case errors.Is(err, shared.ErrMappingNotFound):
		Problem(w, http.StatusUnprocessableEntity, KindMapping, "Account Mapping Missing", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, KindNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, KindConflict, "Conflict", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, KindInternal, "Internal Error", "")
	}
}
