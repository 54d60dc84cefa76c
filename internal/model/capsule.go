package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CapsuleStore defines persistence operations for capsules.
type CapsuleStore interface {
	Create(ctx context.Context, capsule Capsule) (Capsule, error)
	GetByID(ctx context.Context, id uuid.UUID) (Capsule, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]Capsule, error)
	GetByRecipientHash(ctx context.Context, recipientHash string) ([]Capsule, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
	ListDueUndelivered(ctx context.Context, now time.Time) ([]Capsule, error)
	Update(ctx context.Context, id uuid.UUID, fields CapsuleUpdate) error
	MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error)
	MarkUndelivered(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Capsule represents a stored capsule row. Title, Message, Recipient and the
// attachment object are ciphertext envelopes at rest; UnlockAt stays in the
// clear because the delivery sweep queries on it.
type Capsule struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	Title          string
	Message        string
	Recipient      string
	RecipientHash  string
	AttachmentKey  string
	AttachmentKind MediaKind
	UnlockAt       time.Time
	Delivered      bool
	Status         CapsuleStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CapsuleStatus is the coarse lifecycle tag mirrored with the delivered flag.
type CapsuleStatus string

const (
	// StatusPending marks a capsule waiting for its unlock date.
	StatusPending CapsuleStatus = "pending"
	// StatusDelivered marks a capsule the sweep has sent out.
	StatusDelivered CapsuleStatus = "delivered"
)

// CapsuleUpdate is a field-level partial update. Nil pointers leave the
// column untouched; Update applies all set fields in one statement so a
// concurrent reader never observes a torn write.
type CapsuleUpdate struct {
	Title          *string
	Message        *string
	Recipient      *string
	RecipientHash  *string
	AttachmentKey  *string
	AttachmentKind *MediaKind
	UnlockAt       *time.Time
}

// CreateCapsuleParams contains plaintext input to create a capsule.
type CreateCapsuleParams struct {
	OwnerID    uuid.UUID
	Title      string
	Message    string
	Recipient  string
	UnlockAt   time.Time
	Attachment string
}

// UpdateCapsuleParams contains plaintext input to edit a capsule. Nil means
// "keep the stored value".
type UpdateCapsuleParams struct {
	Title      *string
	Message    *string
	Recipient  *string
	UnlockAt   *time.Time
	Attachment *string
}

// CapsuleView is a decrypted capsule as handed to callers. Sealed views of
// received capsules carry timing metadata only.
type CapsuleView struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Title      string
	Message    string
	Recipient  string
	Attachment string
	MediaKind  MediaKind
	UnlockAt   time.Time
	Delivered  bool
	Status     CapsuleStatus
	CreatedAt  time.Time
	Sealed     bool
}

// SweepReport summarizes one delivery sweep.
type SweepReport struct {
	Found   int
	Sent    int
	Skipped int
}
