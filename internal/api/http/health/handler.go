// Package health reports service readiness.
package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// Pinger checks the backing store connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	db Pinger
}

func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      "GET",
		Path:        "/api/health",
		Summary:     "Service health check",
	}, h.check)
}

type checkOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

func (h *Handler) check(ctx context.Context, _ *struct{}) (*checkOutput, error) {
	if err := h.db.Ping(ctx); err != nil {
		return nil, huma.Error503ServiceUnavailable("database unavailable")
	}

	out := &checkOutput{}
	out.Body.Status = "ok"
	return out, nil
}
