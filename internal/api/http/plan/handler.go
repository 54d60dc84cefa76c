// Package plan handles subscription tier upgrades and profile reads.
package plan

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/ghostpost/capsule-server/internal/api/http/apierror"
	"github.com/ghostpost/capsule-server/internal/api/http/middleware/auth"
	"github.com/ghostpost/capsule-server/internal/logger"
	"github.com/ghostpost/capsule-server/internal/model"
	"github.com/ghostpost/capsule-server/internal/service"
)

// Servicer is the account surface the handler depends on.
type Servicer interface {
	SetPlanTier(ctx context.Context, userID uuid.UUID, rawTier, paymentRef string) (model.PlanTier, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (service.Profile, error)
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
		OperationID: "plan-upgrade",
		Method:      "POST",
		Path:        "/api/plan/upgrade",
		Summary:     "Upgrade the caller's plan tier",
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}, h.upgrade)
	huma.Register(api, huma.Operation{
		OperationID: "plan-profile",
		Method:      "GET",
		Path:        "/api/plan/profile",
		Summary:     "Get the caller's profile and plan limits",
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}, h.profile)
}

type upgradeInput struct {
	Body struct {
		Tier             string `json:"tier" doc:"Target plan tier"`
		PaymentReference string `json:"paymentReference" doc:"Manual payment reference (UTR)"`
	}
}

type upgradeOutput struct {
	Body struct {
		Tier string `json:"tier"`
	}
}

type profileOutput struct {
	Body struct {
		Email        string    `json:"email"`
		Name         string    `json:"name"`
		Tier         string    `json:"tier"`
		CapsuleCount int       `json:"capsuleCount"`
		MaxCapsules  int       `json:"maxCapsules"`
		MaxYears     int       `json:"maxYears"`
		AllowMedia   bool      `json:"allowMedia"`
		AllowVideo   bool      `json:"allowVideo"`
		MemberSince  time.Time `json:"memberSince"`
	}
}

func (h *Handler) upgrade(ctx context.Context, input *upgradeInput) (*upgradeOutput, error) {
	identity, ok := auth.GetIdentity(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	tier, err := h.service.SetPlanTier(ctx, identity.UserID, input.Body.Tier, input.Body.PaymentReference)
	if err != nil {
		return nil, apierror.Map(err)
	}

	out := &upgradeOutput{}
	out.Body.Tier = string(tier)
	return out, nil
}

func (h *Handler) profile(ctx context.Context, _ *struct{}) (*profileOutput, error) {
	identity, ok := auth.GetIdentity(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	profile, err := h.service.GetProfile(ctx, identity.UserID)
	if err != nil {
		return nil, apierror.Map(err)
	}

	out := &profileOutput{}
	out.Body.Email = profile.User.Email
	out.Body.Name = profile.User.Name
	out.Body.Tier = string(profile.User.Plan)
	out.Body.CapsuleCount = profile.CapsuleCount
	out.Body.MaxCapsules = profile.Limits.MaxCapsules
	out.Body.MaxYears = profile.Limits.MaxHorizonYears
	out.Body.AllowMedia = profile.Limits.MediaAllowed
	out.Body.AllowVideo = profile.Limits.VideoAllowed
	out.Body.MemberSince = profile.User.CreatedAt
	return out, nil
}
