package capsule

import (
	"time"

	"github.com/google/uuid"

	"github.com/ghostpost/capsule-server/internal/model"
)

// Capsule is the wire representation of a decrypted capsule view.
type Capsule struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"ownerId"`
	Title      string    `json:"title,omitempty"`
	Message    string    `json:"message,omitempty"`
	Recipient  string    `json:"recipient,omitempty"`
	Attachment string    `json:"attachment,omitempty"`
	MediaKind  string    `json:"mediaKind,omitempty"`
	UnlockAt   time.Time `json:"unlockAt"`
	Delivered  bool      `json:"delivered"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	Sealed     bool      `json:"sealed,omitempty"`
}

func fromView(v model.CapsuleView) Capsule {
	return Capsule{
		ID:         v.ID,
		OwnerID:    v.OwnerID,
		Title:      v.Title,
		Message:    v.Message,
		Recipient:  v.Recipient,
		Attachment: v.Attachment,
		MediaKind:  string(v.MediaKind),
		UnlockAt:   v.UnlockAt,
		Delivered:  v.Delivered,
		Status:     string(v.Status),
		CreatedAt:  v.CreatedAt,
		Sealed:     v.Sealed,
	}
}

func fromViews(views []model.CapsuleView) []Capsule {
	out := make([]Capsule, 0, len(views))
	for _, v := range views {
		out = append(out, fromView(v))
	}
	return out
}

type createInput struct {
	Body struct {
		Title      string    `json:"title" doc:"Capsule title"`
		Message    string    `json:"message" doc:"Message revealed at unlock"`
		Recipient  string    `json:"recipient" doc:"Delivery address"`
		UnlockAt   time.Time `json:"unlockAt" doc:"Absolute unlock timestamp (UTC)"`
		Attachment string    `json:"attachment,omitempty" doc:"Optional media attachment (data URI or URL)"`
	}
}

type createOutput struct {
	Body Capsule
}

type getInput struct {
	ID uuid.UUID `path:"id"`
}

type getOutput struct {
	Body Capsule
}

type listOutput struct {
	Body []Capsule
}

type updateInput struct {
	ID   uuid.UUID `path:"id"`
	Body struct {
		Title      *string    `json:"title,omitempty"`
		Message    *string    `json:"message,omitempty"`
		Recipient  *string    `json:"recipient,omitempty"`
		UnlockAt   *time.Time `json:"unlockAt,omitempty"`
		Attachment *string    `json:"attachment,omitempty"`
	}
}

type updateOutput struct {
	Body Capsule
}

type deleteInput struct {
	ID uuid.UUID `path:"id"`
}

type deleteOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}
