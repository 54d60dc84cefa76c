// Package logger provides request logging for the HTTP API.
package logger

import (
	"time"

	"github.com/danielgtaylor/huma/v2"

	applogger "github.com/ghostpost/capsule-server/internal/logger"
)

// Logger logs method, path, status and duration for each request.
type Logger struct {
	logger *applogger.Logger
}

func New(logger *applogger.Logger) *Logger {
	return &Logger{logger: logger}
}

// Middleware returns a huma middleware that logs request completion.
func (l *Logger) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()

		next(ctx)

		l.logger.Info("request completed",
			"method", ctx.Method(),
			"path", ctx.URL().Path,
			"status", ctx.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}
