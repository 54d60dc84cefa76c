// Package token validates identity tokens issued by the external auth
// collaborator. The carried identity is trusted verbatim; no user lookup or
// re-validation happens here.
package token

import (
	"fmt"
	"time"

	"github.com/ghostpost/capsule-server/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents identity claims carried in a collaborator token.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name,omitempty"`
}

// JWT parses and mints identity tokens backed by symmetric HMAC.
type JWT struct {
	secretKey string
}

// NewJWT creates a new JWT manager with the provided secret key.
func NewJWT(secretKey string) *JWT {
	return &JWT{secretKey: secretKey}
}

const identityTTL = 24 * time.Hour

// Generate mints an identity token. Used by capsulectl and tests; in
// production the auth collaborator issues tokens with the shared secret.
func (j *JWT) Generate(identity model.Identity) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(identityTTL)),
		},
		UserID: identity.UserID,
		Email:  identity.Email,
		Name:   identity.Name,
	})

	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign identity token: %w", err)
	}

	return tokenString, nil
}

// Parse validates a token and extracts the caller identity.
func (j *JWT) Parse(tokenString string) (model.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to parse identity token: %w", err)
	}
	if !token.Valid {
		return model.Identity{}, fmt.Errorf("identity token is invalid")
	}
	if claims.UserID == uuid.Nil {
		return model.Identity{}, fmt.Errorf("identity token carries no user id")
	}
	if claims.Email == "" {
		return model.Identity{}, fmt.Errorf("identity token carries no email")
	}

	return model.Identity{
		UserID: claims.UserID,
		Email:  claims.Email,
		Name:   claims.Name,
	}, nil
}
