// Package auth resolves the caller identity from the external auth
// collaborator's bearer token. The identity is trusted verbatim; the only
// side effect is provisioning the user row on first sight.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ghostpost/capsule-server/internal/logger"
	"github.com/ghostpost/capsule-server/internal/model"
)

// TokenParser validates a bearer token and extracts the caller identity.
type TokenParser interface {
	Parse(tokenString string) (model.Identity, error)
}

// Provisioner upserts the user row for a trusted identity.
type Provisioner interface {
	EnsureUser(ctx context.Context, identity model.Identity) (model.User, error)
}

// Auth validates bearer tokens and injects the caller identity into context.
type Auth struct {
	tokens   TokenParser
	accounts Provisioner
	logger   *logger.Logger
}

func New(tokens TokenParser, accounts Provisioner, logger *logger.Logger) *Auth {
	return &Auth{tokens: tokens, accounts: accounts, logger: logger}
}

type contextKey string

const identityKey contextKey = "identity"

// Middleware returns a huma middleware enforcing authentication.
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		header := ctx.Header("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			a.reject(ctx, "missing bearer token")
			return
		}

		identity, err := a.tokens.Parse(token)
		if err != nil {
			a.logger.Error("failed to parse identity token", "error", err)
			a.reject(ctx, "invalid bearer token")
			return
		}

		if _, err := a.accounts.EnsureUser(ctx.Context(), identity); err != nil {
			a.logger.Error("failed to provision user", "error", err, "user_id", identity.UserID)
			a.reject(ctx, "invalid bearer token")
			return
		}

		newCtx := context.WithValue(ctx.Context(), identityKey, identity)
		next(huma.WithContext(ctx, newCtx))
	}
}

func (a *Auth) reject(ctx huma.Context, reason string) {
	ctx.SetStatus(http.StatusUnauthorized)
	ctx.SetHeader("Content-Type", "application/json")
	if err := json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{"error": reason}); err != nil {
		a.logger.Error("failed to write unauthorized response", "error", err)
	}
}

// GetIdentity extracts the caller identity set by the middleware.
func GetIdentity(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(model.Identity)
	return identity, ok
}

// WithIdentity returns a context carrying the given identity. Test helper.
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}
