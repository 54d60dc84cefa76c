// Package apierror maps the core error taxonomy onto HTTP responses in one
// place, so every handler rejects with the same distinguishable reasons.
package apierror

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ghostpost/capsule-server/internal/model"
)

// Map converts a service error into a huma status error. Errors outside the
// taxonomy collapse into an opaque 500.
func Map(err error) error {
	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		return huma.Error400BadRequest(validationErr.Error())
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return huma.Error404NotFound("capsule not found")
	case errors.Is(err, model.ErrNotOwner):
		return huma.Error403Forbidden("not your capsule")
	case errors.Is(err, model.ErrSealed):
		return huma.Error403Forbidden("capsule is still sealed")
	case errors.Is(err, model.ErrInvalidDate),
		errors.Is(err, model.ErrHorizonExceeded),
		errors.Is(err, model.ErrUnknownMedia):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, model.ErrQuotaExceeded),
		errors.Is(err, model.ErrMediaNotAllowed),
		errors.Is(err, model.ErrVideoNotAllowed),
		errors.Is(err, model.ErrMediaTooLarge):
		return huma.Error403Forbidden(err.Error())
	case errors.Is(err, model.ErrEditWindowClosed),
		errors.Is(err, model.ErrAlreadyUnlocked),
		errors.Is(err, model.ErrDeleteWindowClosed):
		return huma.Error409Conflict(err.Error())
	default:
		return huma.Error500InternalServerError("internal server error")
	}
}
