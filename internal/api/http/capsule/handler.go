// Package capsule exposes the owner-facing capsule lifecycle over HTTP.
package capsule

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/ghostpost/capsule-server/internal/api/http/apierror"
	"github.com/ghostpost/capsule-server/internal/api/http/middleware/auth"
	"github.com/ghostpost/capsule-server/internal/logger"
	"github.com/ghostpost/capsule-server/internal/model"
)

// Servicer is the capsule lifecycle surface the handler depends on.
type Servicer interface {
	Create(ctx context.Context, params model.CreateCapsuleParams) (model.CapsuleView, error)
	Update(ctx context.Context, id, callerID uuid.UUID, params model.UpdateCapsuleParams) (model.CapsuleView, error)
	Delete(ctx context.Context, id, callerID uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID, caller model.Identity) (model.CapsuleView, error)
	ListOwned(ctx context.Context, ownerID uuid.UUID) ([]model.CapsuleView, error)
	ListReceived(ctx context.Context, callerEmail string) ([]model.CapsuleView, error)
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
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.listOwnedOp(), h.listOwned)
	huma.Register(api, h.listReceivedOp(), h.listReceived)
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.updateOp(), h.update)
	huma.Register(api, h.deleteOp(), h.delete)
}

func (h *Handler) create(ctx context.Context, input *createInput) (*createOutput, error) {
	identity, ok := auth.GetIdentity(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	view, err := h.service.Create(ctx, model.CreateCapsuleParams{
		OwnerID:    identity.UserID,
		Title:      input.Body.Title,
		Message:    input.Body.Message,
		Recipient:  input.Body.Recipient,
		UnlockAt:   input.Body.UnlockAt,
		Attachment: input.Body.Attachment,
	})
	if err != nil {
		return nil, apierror.Map(err)
	}

	return &createOutput{Body: fromView(view)}, nil
}

func (h *Handler) listOwned(ctx context.Context, _ *struct{}) (*listOutput, error) {
	identity, ok := auth.GetIdentity(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	views, err := h.service.ListOwned(ctx, identity.UserID)
	if err != nil {
		return nil, apierror.Map(err)
	}

	return &listOutput{Body: fromViews(views)}, nil
}

func (h *Handler) listReceived(ctx context.Context, _ *struct{}) (*listOutput, error) {
	identity, ok := auth.GetIdentity(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	views, err := h.service.ListReceived(ctx, identity.Email)
	if err != nil {
		return nil, apierror.Map(err)
	}

	return &listOutput{Body: fromViews(views)}, nil
}

func (h *Handler) get(ctx context.Context, input *getInput) (*getOutput, error) {
	identity, ok := auth.GetIdentity(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	view, err := h.service.Get(ctx, input.ID, identity)
	if err != nil {
		return nil, apierror.Map(err)
	}

	return &getOutput{Body: fromView(view)}, nil
}

func (h *Handler) update(ctx context.Context, input *updateInput) (*updateOutput, error) {
	identity, ok := auth.GetIdentity(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	view, err := h.service.Update(ctx, input.ID, identity.UserID, model.UpdateCapsuleParams{
		Title:      input.Body.Title,
		Message:    input.Body.Message,
		Recipient:  input.Body.Recipient,
		UnlockAt:   input.Body.UnlockAt,
		Attachment: input.Body.Attachment,
	})
	if err != nil {
		return nil, apierror.Map(err)
	}

	return &updateOutput{Body: fromView(view)}, nil
}

func (h *Handler) delete(ctx context.Context, input *deleteInput) (*deleteOutput, error) {
	identity, ok := auth.GetIdentity(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	if err := h.service.Delete(ctx, input.ID, identity.UserID); err != nil {
		return nil, apierror.Map(err)
	}

	out := &deleteOutput{}
	out.Body.Success = true
	return out, nil
}
