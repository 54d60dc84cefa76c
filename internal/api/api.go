// Package api assembles the HTTP surface: one chi mux with every operation
// registered through huma.
package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	capsuleAPI "github.com/ghostpost/capsule-server/internal/api/http/capsule"
	cronAPI "github.com/ghostpost/capsule-server/internal/api/http/cron"
	healthAPI "github.com/ghostpost/capsule-server/internal/api/http/health"
	"github.com/ghostpost/capsule-server/internal/api/http/middleware/auth"
	loggerMW "github.com/ghostpost/capsule-server/internal/api/http/middleware/logger"
	planAPI "github.com/ghostpost/capsule-server/internal/api/http/plan"
	viewAPI "github.com/ghostpost/capsule-server/internal/api/http/view"
	"github.com/ghostpost/capsule-server/internal/logger"
	"github.com/ghostpost/capsule-server/internal/service"
)

// Dependencies carries the wired services the API exposes.
type Dependencies struct {
	Capsules   *service.Capsule
	Accounts   *service.Account
	Delivery   *service.Delivery
	Tokens     auth.TokenParser
	DB         healthAPI.Pinger
	CronSecret string
}

// New builds the router with all operations registered.
func New(deps Dependencies, log *logger.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("GhostPost Capsule API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	humaAPI := humachi.New(mux, config)

	requestLogger := loggerMW.New(log)
	authMW := auth.New(deps.Tokens, deps.Accounts, log)

	public := huma.Middlewares{requestLogger.Middleware()}
	protected := huma.Middlewares{requestLogger.Middleware(), authMW.Middleware()}

	healthAPI.NewHandler(deps.DB).SetupRoutes(humaAPI)
	viewAPI.NewHandler(deps.Capsules, log, public).SetupRoutes(humaAPI)
	cronAPI.NewHandler(deps.Delivery, deps.CronSecret, log, public).SetupRoutes(humaAPI)
	capsuleAPI.NewHandler(deps.Capsules, log, protected).SetupRoutes(humaAPI)
	planAPI.NewHandler(deps.Accounts, log, protected).SetupRoutes(humaAPI)

	return mux
}
