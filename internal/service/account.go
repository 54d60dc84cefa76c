package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ghostpost/capsule-server/internal/entitlement"
	"github.com/ghostpost/capsule-server/internal/logger"
	"github.com/ghostpost/capsule-server/internal/model"
)

// Account owns the user-facing side of entitlements: provisioning rows for
// identities the auth collaborator vouches for, and applying plan changes
// the payment collaborator confirms.
type Account struct {
	userStore    model.UserStore
	capsuleStore model.CapsuleStore
	logger       *logger.Logger
}

func NewAccount(userStore model.UserStore, capsuleStore model.CapsuleStore, logger *logger.Logger) *Account {
	return &Account{
		userStore:    userStore,
		capsuleStore: capsuleStore,
		logger:       logger,
	}
}

// EnsureUser upserts the user row for a trusted identity.
func (s *Account) EnsureUser(ctx context.Context, identity model.Identity) (model.User, error) {
	user, err := s.userStore.Upsert(ctx, model.User{
		ID:    identity.UserID,
		Email: identity.Email,
		Name:  identity.Name,
		Plan:  model.PlanFree,
	})
	if err != nil {
		return model.User{}, fmt.Errorf("failed to upsert user: %w", err)
	}
	return user, nil
}

// SetPlanTier applies a plan change confirmed by the payment collaborator.
// The payment reference is recorded for audit only; its verification is the
// collaborator's concern.
func (s *Account) SetPlanTier(ctx context.Context, userID uuid.UUID, rawTier, paymentRef string) (model.PlanTier, error) {
	if len(paymentRef) < 4 {
		return "", model.NewValidationError("payment_reference")
	}

	tier := model.ParsePlanTier(rawTier)
	if err := s.userStore.SetPlanTier(ctx, userID, tier); err != nil {
		return "", fmt.Errorf("failed to set plan tier: %w", err)
	}

	s.logger.Info("plan tier updated", "user_id", userID, "tier", tier, "payment_ref", paymentRef)
	return tier, nil
}

// Profile returns the user together with resolved limits and current usage.
type Profile struct {
	User         model.User
	Limits       entitlement.Limits
	CapsuleCount int
}

// GetProfile resolves the caller's plan limits and capsule usage.
func (s *Account) GetProfile(ctx context.Context, userID uuid.UUID) (Profile, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to get user: %w", err)
	}

	count, err := s.capsuleStore.CountByOwner(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to count capsules: %w", err)
	}

	return Profile{
		User:         user,
		Limits:       entitlement.ForTier(user.Plan),
		CapsuleCount: count,
	}, nil
}
