// Package view serves shared capsule links without authentication.
package view

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/ghostpost/capsule-server/internal/api/http/apierror"
	"github.com/ghostpost/capsule-server/internal/logger"
	"github.com/ghostpost/capsule-server/internal/model"
)

// Servicer resolves a capsule through the public view path.
type Servicer interface {
	GetPublic(ctx context.Context, id uuid.UUID) (model.CapsuleView, error)
}

type Handler struct {
	service    Servicer
	logger     *logger.Logger
	middleware huma.Middlewares
}

func NewHandler(service Servicer, logger *logger.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		logger:     logger,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "view-get",
		Method:      "GET",
		Path:        "/api/view/{id}",
		Summary:     "View an unlocked capsule by share link",
		Middlewares: h.middleware,
	}, h.get)
}

type getInput struct {
	ID uuid.UUID `path:"id"`
}

type getOutput struct {
	Body struct {
		ID         uuid.UUID `json:"id"`
		Title      string    `json:"title"`
		Message    string    `json:"message"`
		Attachment string    `json:"attachment,omitempty"`
		MediaKind  string    `json:"mediaKind,omitempty"`
		UnlockAt   time.Time `json:"unlockAt"`
		CreatedAt  time.Time `json:"createdAt"`
	}
}

func (h *Handler) get(ctx context.Context, input *getInput) (*getOutput, error) {
	view, err := h.service.GetPublic(ctx, input.ID)
	if err != nil {
		return nil, apierror.Map(err)
	}

	out := &getOutput{}
	out.Body.ID = view.ID
	out.Body.Title = view.Title
	out.Body.Message = view.Message
	out.Body.Attachment = view.Attachment
	out.Body.MediaKind = string(view.MediaKind)
	out.Body.UnlockAt = view.UnlockAt
	out.Body.CreatedAt = view.CreatedAt
	return out, nil
}
