package httpapi

import (
	"errors"
	"net/http"

	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
	"github.com/atvirokodosprendimai/entitygen/internal/core/usecase"
)

type validationResponse struct {
	Success   bool                 `json:"success"`
	Errors    domain.Errors        `json:"errors"`
	Messages  []string             `json:"messages"`
	Data      *domain.EntitySchema `json:"data,omitempty"`
	ViewModel *domain.ViewModel    `json:"viewModel,omitempty"`
}

func toValidationResponse(res *usecase.Result) validationResponse {
	return validationResponse{
		Success:   res.Success(),
		Errors:    res.MessagesByKey(),
		Messages:  res.Messages(),
		Data:      res.Data(),
		ViewModel: res.ViewModel(),
	}
}

// validateEntity is the stateless check. Failures are answered with 422 and
// the mapped errors; they are not transport errors.
func (h *Handler) validateEntity(w http.ResponseWriter, r *http.Request) {
	body, err := readSchemaBody(w, r)
	if err != nil {
		if errors.Is(err, errEmptyBody) {
			writeError(w, http.StatusBadRequest, "empty body")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	res := h.validator.ValidateContext(r.Context(), body)
	status := http.StatusOK
	if res.Failure() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, toValidationResponse(res))
}
