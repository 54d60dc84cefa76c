// Package cron exposes the delivery sweep to external schedulers.
package cron

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ghostpost/capsule-server/internal/logger"
	"github.com/ghostpost/capsule-server/internal/model"
)

// Sweeper runs one delivery pass over due capsules.
type Sweeper interface {
	RunSweep(ctx context.Context) (model.SweepReport, error)
}

type Handler struct {
	sweeper    Sweeper
	secret     string
	logger     *logger.Logger
	middleware huma.Middlewares
}

func NewHandler(sweeper Sweeper, secret string, logger *logger.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		sweeper:    sweeper,
		secret:     secret,
		logger:     logger,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "cron-sweep",
		Method:      "GET",
		Path:        "/api/cron",
		Summary:     "Trigger a delivery sweep over due capsules",
		Middlewares: h.middleware,
	}, h.sweep)
}

type sweepInput struct {
	Secret string `header:"X-Cron-Secret" doc:"Shared sweep secret"`
}

type sweepOutput struct {
	Body struct {
		Found   int `json:"found"`
		Sent    int `json:"sent"`
		Skipped int `json:"skipped"`
	}
}

func (h *Handler) sweep(ctx context.Context, input *sweepInput) (*sweepOutput, error) {
	if h.secret == "" || input.Secret != h.secret {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	report, err := h.sweeper.RunSweep(ctx)
	if err != nil {
		h.logger.Error("sweep failed", "error", err)
		return nil, huma.Error500InternalServerError("internal server error")
	}

	out := &sweepOutput{}
	out.Body.Found = report.Found
	out.Body.Sent = report.Sent
	out.Body.Skipped = report.Skipped
	return out, nil
}
