package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced capsule or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotOwner means the caller does not own the capsule.
	ErrNotOwner = errors.New("caller is not the capsule owner")
	// ErrSealed means a recipient tried to read a capsule before its unlock date.
	ErrSealed = errors.New("capsule is still sealed")

	// ErrInvalidDate means the unlock date is unparseable or not strictly in the future.
	ErrInvalidDate = errors.New("unlock date must be in the future")
	// ErrHorizonExceeded means the unlock date is beyond the plan's horizon.
	ErrHorizonExceeded = errors.New("unlock date exceeds plan horizon")
	// ErrQuotaExceeded means the owner already holds the plan's maximum capsule count.
	ErrQuotaExceeded = errors.New("capsule quota reached for plan")
	// ErrMediaNotAllowed means the plan does not include media attachments.
	ErrMediaNotAllowed = errors.New("media attachments not available on plan")
	// ErrVideoNotAllowed means the plan does not include video attachments.
	ErrVideoNotAllowed = errors.New("video attachments not available on plan")
	// ErrMediaTooLarge means the attachment exceeds the plan's size ceiling.
	ErrMediaTooLarge = errors.New("attachment exceeds plan size limit")
	// ErrUnknownMedia means the attachment kind could not be classified.
	ErrUnknownMedia = errors.New("attachment kind is not recognized")

	// ErrEditWindowClosed means the capsule is within the final hour before unlock.
	ErrEditWindowClosed = errors.New("editing is disabled 1 hour before release")
	// ErrAlreadyUnlocked means the unlock date has passed and edits are no longer possible.
	ErrAlreadyUnlocked = errors.New("capsule is already unlocked")
	// ErrDeleteWindowClosed means the capsule is within the final 24 hours before unlock.
	ErrDeleteWindowClosed = errors.New("deletion is locked 24 hours before release")
)

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q is required", e.Field)
}

// NewValidationError creates a ValidationError for the named field.
func NewValidationError(field string) *ValidationError {
	return &ValidationError{Field: field}
}
