package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Upsert(ctx context.Context, user User) (User, error)
	SetPlanTier(ctx context.Context, id uuid.UUID, tier PlanTier) error
}

// User represents an account as supplied by the external auth collaborator.
// Identity is trusted verbatim; only the plan tier is owned here.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Plan      PlanTier
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlanTier enumerates subscription plans.
type PlanTier string

const (
	// PlanFree is the baseline "Traveler" plan.
	PlanFree PlanTier = "free"
	// PlanTimeKeeper is the mid plan.
	PlanTimeKeeper PlanTier = "timekeeper"
	// PlanTimeLord is the premium plan.
	PlanTimeLord PlanTier = "timelord"
)

// ParsePlanTier maps a raw tier string onto the closed enum. Anything
// unrecognized resolves to the most restrictive plan.
func ParsePlanTier(s string) PlanTier {
	switch PlanTier(strings.ToLower(strings.TrimSpace(s))) {
	case PlanTimeKeeper:
		return PlanTimeKeeper
	case PlanTimeLord:
		return PlanTimeLord
	default:
		return PlanFree
	}
}

// HashRecipient derives the deterministic lookup key for a recipient
// address. The address itself is stored as ciphertext with per-row nonces,
// so received-capsule queries go through this hash column instead.
func HashRecipient(address string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(address))))
	return hex.EncodeToString(sum[:])
}
