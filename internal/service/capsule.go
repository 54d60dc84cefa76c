package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ghostpost/capsule-server/internal/entitlement"
	"github.com/ghostpost/capsule-server/internal/envelope"
	"github.com/ghostpost/capsule-server/internal/logger"
	"github.com/ghostpost/capsule-server/internal/model"
)

const (
	// editLockWindow is the final stretch before unlock during which content
	// edits are forbidden.
	editLockWindow = time.Hour
	// deleteLockWindow is the final stretch before unlock during which
	// deletion is forbidden. It fully contains the edit window.
	deleteLockWindow = 24 * time.Hour
)

// Capsule implements the capsule lifecycle: creation validation, the edit
// and delete lock windows, and owner/recipient read rules.
type Capsule struct {
	capsuleStore model.CapsuleStore
	userStore    model.UserStore
	cipher       *envelope.Cipher
	blobs        model.BlobStore
	logger       *logger.Logger
	now          func() time.Time
}

func NewCapsule(
	capsuleStore model.CapsuleStore,
	userStore model.UserStore,
	cipher *envelope.Cipher,
	blobs model.BlobStore,
	logger *logger.Logger,
) *Capsule {
	return &Capsule{
		capsuleStore: capsuleStore,
		userStore:    userStore,
		cipher:       cipher,
		blobs:        blobs,
		logger:       logger,
		now:          time.Now,
	}
}

// Create validates and persists a new capsule, encrypting all content
// fields. The returned view carries the caller's plaintext back; it is never
// re-read from storage without decrypting.
func (s *Capsule) Create(ctx context.Context, params model.CreateCapsuleParams) (model.CapsuleView, error) {
	required := []struct{ name, value string }{
		{"title", params.Title},
		{"message", params.Message},
		{"recipient", params.Recipient},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return model.CapsuleView{}, model.NewValidationError(f.name)
		}
	}

	now := s.now()
	if params.UnlockAt.IsZero() || !params.UnlockAt.After(now) {
		return model.CapsuleView{}, model.ErrInvalidDate
	}

	user, err := s.userStore.GetByID(ctx, params.OwnerID)
	if err != nil {
		return model.CapsuleView{}, fmt.Errorf("failed to get owner: %w", err)
	}
	limits := entitlement.ForTier(user.Plan)

	count, err := s.capsuleStore.CountByOwner(ctx, params.OwnerID)
	if err != nil {
		return model.CapsuleView{}, fmt.Errorf("failed to count capsules: %w", err)
	}
	if count >= limits.MaxCapsules {
		return model.CapsuleView{}, model.ErrQuotaExceeded
	}

	if params.UnlockAt.After(now.AddDate(limits.MaxHorizonYears, 0, 0)) {
		return model.CapsuleView{}, model.ErrHorizonExceeded
	}

	kind, err := validateAttachment(limits, params.Attachment)
	if err != nil {
		return model.CapsuleView{}, err
	}

	capsule := model.Capsule{
		ID:             uuid.New(),
		OwnerID:        params.OwnerID,
		RecipientHash:  model.HashRecipient(params.Recipient),
		AttachmentKind: kind,
		UnlockAt:       params.UnlockAt.UTC(),
		Status:         model.StatusPending,
	}

	if capsule.Title, err = s.cipher.Encrypt(params.Title); err != nil {
		return model.CapsuleView{}, fmt.Errorf("failed to encrypt title: %w", err)
	}
	if capsule.Message, err = s.cipher.Encrypt(params.Message); err != nil {
		return model.CapsuleView{}, fmt.Errorf("failed to encrypt message: %w", err)
	}
	if capsule.Recipient, err = s.cipher.Encrypt(params.Recipient); err != nil {
		return model.CapsuleView{}, fmt.Errorf("failed to encrypt recipient: %w", err)
	}

	if params.Attachment != "" {
		key, err := s.storeAttachment(ctx, capsule.OwnerID, capsule.ID, params.Attachment)
		if err != nil {
			return model.CapsuleView{}, err
		}
		capsule.AttachmentKey = key
	}

	saved, err := s.capsuleStore.Create(ctx, capsule)
	if err != nil {
		if capsule.AttachmentKey != "" {
			if delErr := s.blobs.Delete(ctx, capsule.AttachmentKey); delErr != nil {
				s.logger.Error("failed to delete orphaned attachment", "error", delErr, "key", capsule.AttachmentKey)
			}
		}
		return model.CapsuleView{}, fmt.Errorf("failed to create capsule: %w", err)
	}

	view := s.plaintextView(saved)
	view.Title = params.Title
	view.Message = params.Message
	view.Recipient = params.Recipient
	view.Attachment = params.Attachment
	return view, nil
}

// Update edits a capsule in place. Edits are forbidden once unlocked and
// inside the final hour before unlock; changed fields are re-validated
// against the owner's current plan and re-encrypted.
func (s *Capsule) Update(ctx context.Context, id, callerID uuid.UUID, params model.UpdateCapsuleParams) (model.CapsuleView, error) {
	capsule, err := s.capsuleStore.GetByID(ctx, id)
	if err != nil {
		return model.CapsuleView{}, err
	}
	if capsule.OwnerID != callerID {
		return model.CapsuleView{}, model.ErrNotOwner
	}

	now := s.now()
	untilUnlock := capsule.UnlockAt.Sub(now)
	if untilUnlock <= 0 {
		return model.CapsuleView{}, model.ErrAlreadyUnlocked
	}
	if untilUnlock < editLockWindow {
		return model.CapsuleView{}, model.ErrEditWindowClosed
	}

	var fields model.CapsuleUpdate

	if params.Title != nil {
		if strings.TrimSpace(*params.Title) == "" {
			return model.CapsuleView{}, model.NewValidationError("title")
		}
		enc, err := s.cipher.Encrypt(*params.Title)
		if err != nil {
			return model.CapsuleView{}, fmt.Errorf("failed to encrypt title: %w", err)
		}
		fields.Title = &enc
	}

	if params.Message != nil {
		if strings.TrimSpace(*params.Message) == "" {
			return model.CapsuleView{}, model.NewValidationError("message")
		}
		enc, err := s.cipher.Encrypt(*params.Message)
		if err != nil {
			return model.CapsuleView{}, fmt.Errorf("failed to encrypt message: %w", err)
		}
		fields.Message = &enc
	}

	if params.Recipient != nil {
		if strings.TrimSpace(*params.Recipient) == "" {
			return model.CapsuleView{}, model.NewValidationError("recipient")
		}
		enc, err := s.cipher.Encrypt(*params.Recipient)
		if err != nil {
			return model.CapsuleView{}, fmt.Errorf("failed to encrypt recipient: %w", err)
		}
		hash := model.HashRecipient(*params.Recipient)
		fields.Recipient = &enc
		fields.RecipientHash = &hash
	}

	// Plan limits are re-checked against the owner's current tier on unlock
	// date and attachment changes.
	if params.UnlockAt != nil || params.Attachment != nil {
		user, err := s.userStore.GetByID(ctx, capsule.OwnerID)
		if err != nil {
			return model.CapsuleView{}, fmt.Errorf("failed to get owner: %w", err)
		}
		limits := entitlement.ForTier(user.Plan)

		if params.UnlockAt != nil {
			if params.UnlockAt.IsZero() || !params.UnlockAt.After(now) {
				return model.CapsuleView{}, model.ErrInvalidDate
			}
			if params.UnlockAt.After(now.AddDate(limits.MaxHorizonYears, 0, 0)) {
				return model.CapsuleView{}, model.ErrHorizonExceeded
			}
			unlockAt := params.UnlockAt.UTC()
			fields.UnlockAt = &unlockAt
		}

		if params.Attachment != nil {
			kind, err := validateAttachment(limits, *params.Attachment)
			if err != nil {
				return model.CapsuleView{}, err
			}

			key := ""
			if *params.Attachment != "" {
				key, err = s.storeAttachment(ctx, capsule.OwnerID, capsule.ID, *params.Attachment)
				if err != nil {
					return model.CapsuleView{}, err
				}
			}
			fields.AttachmentKey = &key
			fields.AttachmentKind = &kind
		}
	}

	if err := s.capsuleStore.Update(ctx, id, fields); err != nil {
		if fields.AttachmentKey != nil && *fields.AttachmentKey != "" {
			if delErr := s.blobs.Delete(ctx, *fields.AttachmentKey); delErr != nil {
				s.logger.Error("failed to delete orphaned attachment", "error", delErr, "key", *fields.AttachmentKey)
			}
		}
		return model.CapsuleView{}, fmt.Errorf("failed to update capsule: %w", err)
	}

	// The replaced object is unreferenced once the row points elsewhere.
	if fields.AttachmentKey != nil && capsule.AttachmentKey != "" && capsule.AttachmentKey != *fields.AttachmentKey {
		if err := s.blobs.Delete(ctx, capsule.AttachmentKey); err != nil {
			s.logger.Error("failed to delete replaced attachment", "error", err, "key", capsule.AttachmentKey)
		}
	}

	updated, err := s.capsuleStore.GetByID(ctx, id)
	if err != nil {
		return model.CapsuleView{}, fmt.Errorf("failed to reload capsule: %w", err)
	}
	return s.decryptView(ctx, updated, true), nil
}

// Delete removes a capsule permanently. Deletion is forbidden inside the
// final 24 hours before unlock but allowed again once fully unlocked, so
// cleanup of delivered capsules is never blocked.
func (s *Capsule) Delete(ctx context.Context, id, callerID uuid.UUID) error {
	capsule, err := s.capsuleStore.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if capsule.OwnerID != callerID {
		return model.ErrNotOwner
	}

	untilUnlock := capsule.UnlockAt.Sub(s.now())
	if untilUnlock > 0 && untilUnlock < deleteLockWindow {
		return model.ErrDeleteWindowClosed
	}

	if capsule.AttachmentKey != "" {
		if err := s.blobs.Delete(ctx, capsule.AttachmentKey); err != nil {
			s.logger.Error("failed to delete attachment object", "error", err, "key", capsule.AttachmentKey)
		}
	}

	if err := s.capsuleStore.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete capsule: %w", err)
	}
	return nil
}

// Get returns the decrypted capsule for its owner at any time, or for its
// recipient once the unlock date has passed.
func (s *Capsule) Get(ctx context.Context, id uuid.UUID, caller model.Identity) (model.CapsuleView, error) {
	capsule, err := s.capsuleStore.GetByID(ctx, id)
	if err != nil {
		return model.CapsuleView{}, err
	}

	if capsule.OwnerID == caller.UserID {
		return s.decryptView(ctx, capsule, true), nil
	}

	if capsule.RecipientHash != model.HashRecipient(caller.Email) {
		return model.CapsuleView{}, model.ErrNotOwner
	}
	if s.now().Before(capsule.UnlockAt) {
		return model.CapsuleView{}, model.ErrSealed
	}
	return s.decryptView(ctx, capsule, true), nil
}

// GetPublic serves the unauthenticated recipient link. It is gated purely on
// capsule existence and the unlock date having passed; a deliberately
// lower-trust channel than the authenticated paths.
func (s *Capsule) GetPublic(ctx context.Context, id uuid.UUID) (model.CapsuleView, error) {
	capsule, err := s.capsuleStore.GetByID(ctx, id)
	if err != nil {
		return model.CapsuleView{}, err
	}
	if s.now().Before(capsule.UnlockAt) {
		return model.CapsuleView{}, model.ErrSealed
	}
	return s.decryptView(ctx, capsule, true), nil
}

// ListOwned returns the caller's capsules, newest first. Attachment content
// is not fetched for listings; the view carries the media kind only.
func (s *Capsule) ListOwned(ctx context.Context, ownerID uuid.UUID) ([]model.CapsuleView, error) {
	capsules, err := s.capsuleStore.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list capsules: %w", err)
	}

	views := make([]model.CapsuleView, 0, len(capsules))
	for _, capsule := range capsules {
		views = append(views, s.decryptView(ctx, capsule, false))
	}
	return views, nil
}

// ListReceived returns capsules addressed to the caller. Sealed ones appear
// as locked stubs carrying timing metadata only.
func (s *Capsule) ListReceived(ctx context.Context, callerEmail string) ([]model.CapsuleView, error) {
	capsules, err := s.capsuleStore.GetByRecipientHash(ctx, model.HashRecipient(callerEmail))
	if err != nil {
		return nil, fmt.Errorf("failed to list received capsules: %w", err)
	}

	now := s.now()
	views := make([]model.CapsuleView, 0, len(capsules))
	for _, capsule := range capsules {
		if now.Before(capsule.UnlockAt) {
			views = append(views, model.CapsuleView{
				ID:        capsule.ID,
				OwnerID:   capsule.OwnerID,
				UnlockAt:  capsule.UnlockAt,
				Status:    capsule.Status,
				CreatedAt: capsule.CreatedAt,
				Sealed:    true,
			})
			continue
		}
		views = append(views, s.decryptView(ctx, capsule, false))
	}
	return views, nil
}

func (s *Capsule) storeAttachment(ctx context.Context, ownerID, capsuleID uuid.UUID, attachment string) (string, error) {
	env, err := s.cipher.Encrypt(attachment)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt attachment: %w", err)
	}

	key := fmt.Sprintf("owner-%s/capsule-%s/attachment-%s", ownerID, capsuleID, uuid.New())
	if err := s.blobs.Upload(ctx, key, bytes.NewReader([]byte(env))); err != nil {
		return "", fmt.Errorf("failed to upload attachment: %w", err)
	}
	return key, nil
}

func (s *Capsule) loadAttachment(ctx context.Context, key string) string {
	reader, err := s.blobs.Download(ctx, key)
	if err != nil {
		s.logger.Error("failed to download attachment", "error", err, "key", key)
		return envelope.Unreadable
	}
	defer reader.Close()

	env, err := io.ReadAll(reader)
	if err != nil {
		s.logger.Error("failed to read attachment", "error", err, "key", key)
		return envelope.Unreadable
	}
	return s.cipher.Decrypt(string(env))
}

func (s *Capsule) decryptView(ctx context.Context, capsule model.Capsule, withAttachment bool) model.CapsuleView {
	view := s.plaintextView(capsule)
	view.Title = s.cipher.Decrypt(capsule.Title)
	view.Message = s.cipher.Decrypt(capsule.Message)
	view.Recipient = s.cipher.Decrypt(capsule.Recipient)
	if withAttachment && capsule.AttachmentKey != "" {
		view.Attachment = s.loadAttachment(ctx, capsule.AttachmentKey)
	}
	return view
}

func (s *Capsule) plaintextView(capsule model.Capsule) model.CapsuleView {
	return model.CapsuleView{
		ID:        capsule.ID,
		OwnerID:   capsule.OwnerID,
		MediaKind: capsule.AttachmentKind,
		UnlockAt:  capsule.UnlockAt,
		Delivered: capsule.Delivered,
		Status:    capsule.Status,
		CreatedAt: capsule.CreatedAt,
	}
}

func validateAttachment(limits entitlement.Limits, ref string) (model.MediaKind, error) {
	kind := model.ClassifyAttachment(ref)
	switch kind {
	case model.MediaNone:
		return kind, nil
	case model.MediaUnknown:
		return kind, model.ErrUnknownMedia
	}
	if !limits.MediaAllowed {
		return kind, model.ErrMediaNotAllowed
	}
	if kind == model.MediaVideo && !limits.VideoAllowed {
		return kind, model.ErrVideoNotAllowed
	}
	if limits.MaxMediaBytes > 0 && model.AttachmentByteSize(ref) > limits.MaxMediaBytes {
		return kind, model.ErrMediaTooLarge
	}
	return kind, nil
}
