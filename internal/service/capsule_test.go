package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ghostpost/capsule-server/internal/model"
	"github.com/ghostpost/capsule-server/internal/testutil"
)

func newTestCapsuleService(capsuleStore *MockCapsuleStore, userStore *MockUserStore, blobs *MockBlobStore, now time.Time) *Capsule {
	s := NewCapsule(capsuleStore, userStore, testCipher(), blobs, testutil.MakeNoopLogger())
	s.now = func() time.Time { return now }
	return s
}

func TestCapsule_Create(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ownerID := uuid.New()

	validParams := func() model.CreateCapsuleParams {
		return model.CreateCapsuleParams{
			OwnerID:   ownerID,
			Title:     "To my future self",
			Message:   "Remember this day",
			Recipient: "future@example.com",
			UnlockAt:  now.AddDate(0, 6, 0),
		}
	}

	tests := []struct {
		name      string
		params    func() model.CreateCapsuleParams
		mockSetup  func(capsuleStore *MockCapsuleStore, userStore *MockUserStore, blobs *MockBlobStore)
		wantErr    error
		wantErrMsg string
		wantField  string
	}{
		{
			name:   "success",
			params: validParams,
			mockSetup: func(capsuleStore *MockCapsuleStore, userStore *MockUserStore, blobs *MockBlobStore) {
				userStore.On("GetByID", mock.Anything, ownerID).Return(model.User{ID: ownerID, Plan: model.PlanFree}, nil)
				capsuleStore.On("CountByOwner", mock.Anything, ownerID).Return(0, nil)
				capsuleStore.On("Create", mock.Anything, mock.MatchedBy(func(c model.Capsule) bool {
					return c.OwnerID == ownerID &&
						c.Title != "To my future self" &&
						c.RecipientHash == model.HashRecipient("future@example.com") &&
						c.Status == model.StatusPending &&
						!c.Delivered
				})).Return(model.Capsule{ID: uuid.New(), OwnerID: ownerID, UnlockAt: now.AddDate(0, 6, 0)}, nil)
			},
		},
		{
			name: "missing title",
			params: func() model.CreateCapsuleParams {
				p := validParams()
				p.Title = "   "
				return p
			},
			mockSetup: func(*MockCapsuleStore, *MockUserStore, *MockBlobStore) {},
			wantField: "title",
		},
		{
			name: "missing recipient",
			params: func() model.CreateCapsuleParams {
				p := validParams()
				p.Recipient = ""
				return p
			},
			mockSetup: func(*MockCapsuleStore, *MockUserStore, *MockBlobStore) {},
			wantField: "recipient",
		},
		{
			name: "unlock date not in the future",
			params: func() model.CreateCapsuleParams {
				p := validParams()
				p.UnlockAt = now
				return p
			},
			mockSetup: func(*MockCapsuleStore, *MockUserStore, *MockBlobStore) {},
			wantErr:   model.ErrInvalidDate,
		},
		{
			name: "unlock date in the past",
			params: func() model.CreateCapsuleParams {
				p := validParams()
				p.UnlockAt = now.Add(-time.Minute)
				return p
			},
			mockSetup: func(*MockCapsuleStore, *MockUserStore, *MockBlobStore) {},
			wantErr:   model.ErrInvalidDate,
		},
		{
			name:   "free plan quota exhausted",
			params: validParams,
			mockSetup: func(capsuleStore *MockCapsuleStore, userStore *MockUserStore, blobs *MockBlobStore) {
				userStore.On("GetByID", mock.Anything, ownerID).Return(model.User{ID: ownerID, Plan: model.PlanFree}, nil)
				capsuleStore.On("CountByOwner", mock.Anything, ownerID).Return(3, nil)
			},
			wantErr: model.ErrQuotaExceeded,
		},
		{
			name: "free plan horizon exceeded",
			params: func() model.CreateCapsuleParams {
				p := validParams()
				p.UnlockAt = now.AddDate(1, 0, 1)
				return p
			},
			mockSetup: func(capsuleStore *MockCapsuleStore, userStore *MockUserStore, blobs *MockBlobStore) {
				userStore.On("GetByID", mock.Anything, ownerID).Return(model.User{ID: ownerID, Plan: model.PlanFree}, nil)
				capsuleStore.On("CountByOwner", mock.Anything, ownerID).Return(0, nil)
			},
			wantErr: model.ErrHorizonExceeded,
		},
		{
			name: "timekeeper accepts a ten year horizon",
			params: func() model.CreateCapsuleParams {
				p := validParams()
				p.UnlockAt = now.AddDate(10, 0, 0)
				return p
			},
			mockSetup: func(capsuleStore *MockCapsuleStore, userStore *MockUserStore, blobs *MockBlobStore) {
				userStore.On("GetByID", mock.Anything, ownerID).Return(model.User{ID: ownerID, Plan: model.PlanTimeKeeper}, nil)
				capsuleStore.On("CountByOwner", mock.Anything, ownerID).Return(9, nil)
				capsuleStore.On("Create", mock.Anything, mock.Anything).Return(model.Capsule{ID: uuid.New(), OwnerID: ownerID}, nil)
			},
		},
		{
			name: "media forbidden on free plan",
			params: func() model.CreateCapsuleParams {
				p := validParams()
				p.Attachment = "data:image/png;base64,aGVsbG8="
				return p
			},
			mockSetup: func(capsuleStore *MockCapsuleStore, userStore *MockUserStore, blobs *MockBlobStore) {
				userStore.On("GetByID", mock.Anything, ownerID).Return(model.User{ID: ownerID, Plan: model.PlanFree}, nil)
				capsuleStore.On("CountByOwner", mock.Anything, ownerID).Return(0, nil)
			},
			wantErr: model.ErrMediaNotAllowed,
		},
		{
			name: "video forbidden on timekeeper plan",
			params: func() model.CreateCapsuleParams {
				p := validParams()
				p.Attachment = "data:video/mp4;base64,aGVsbG8="
				return p
			},
			mockSetup: func(capsuleStore *MockCapsuleStore, userStore *MockUserStore, blobs *MockBlobStore) {
				userStore.On("GetByID", mock.Anything, ownerID).Return(model.User{ID: ownerID, Plan: model.PlanTimeKeeper}, nil)
				capsuleStore.On("CountByOwner", mock.Anything, ownerID).Return(0, nil)
			},
			wantErr: model.ErrVideoNotAllowed,
		},
		{
			name: "unclassifiable attachment",
			params: func() model.CreateCapsuleParams {
				p := validParams()
				p.Attachment = "not-a-data-uri-or-known-url"
				return p
			},
			mockSetup: func(capsuleStore *MockCapsuleStore, userStore *MockUserStore, blobs *MockBlobStore) {
				userStore.On("GetByID", mock.Anything, ownerID).Return(model.User{ID: ownerID, Plan: model.PlanTimeLord}, nil)
				capsuleStore.On("CountByOwner", mock.Anything, ownerID).Return(0, nil)
			},
			wantErr: model.ErrUnknownMedia,
		},
		{
			name: "attachment stored and capsule row references it",
			params: func() model.CreateCapsuleParams {
				p := validParams()
				p.Attachment = "data:image/png;base64,aGVsbG8="
				return p
			},
			mockSetup: func(capsuleStore *MockCapsuleStore, userStore *MockUserStore, blobs *MockBlobStore) {
				userStore.On("GetByID", mock.Anything, ownerID).Return(model.User{ID: ownerID, Plan: model.PlanTimeLord}, nil)
				capsuleStore.On("CountByOwner", mock.Anything, ownerID).Return(0, nil)
				blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil)
				capsuleStore.On("Create", mock.Anything, mock.MatchedBy(func(c model.Capsule) bool {
					return c.AttachmentKey != "" && c.AttachmentKind == model.MediaImage
				})).Return(model.Capsule{ID: uuid.New(), OwnerID: ownerID}, nil)
			},
		},
		{
			name: "orphaned blob removed when the row insert fails",
			params: func() model.CreateCapsuleParams {
				p := validParams()
				p.Attachment = "data:image/png;base64,aGVsbG8="
				return p
			},
			mockSetup: func(capsuleStore *MockCapsuleStore, userStore *MockUserStore, blobs *MockBlobStore) {
				userStore.On("GetByID", mock.Anything, ownerID).Return(model.User{ID: ownerID, Plan: model.PlanTimeLord}, nil)
				capsuleStore.On("CountByOwner", mock.Anything, ownerID).Return(0, nil)
				blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil)
				capsuleStore.On("Create", mock.Anything, mock.Anything).Return(model.Capsule{}, errors.New("database error"))
				blobs.On("Delete", mock.Anything, mock.Anything).Return(nil)
			},
			wantErrMsg: "failed to create capsule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capsuleStore := &MockCapsuleStore{}
			userStore := &MockUserStore{}
			blobs := &MockBlobStore{}
			tt.mockSetup(capsuleStore, userStore, blobs)

			s := newTestCapsuleService(capsuleStore, userStore, blobs, now)

			view, err := s.Create(context.Background(), tt.params())

			switch {
			case tt.wantField != "":
				var vErr *model.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, tt.wantField, vErr.Field)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrMsg != "":
				assert.ErrorContains(t, err, tt.wantErrMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, "To my future self", view.Title)
				assert.Equal(t, "future@example.com", view.Recipient)
			}

			capsuleStore.AssertExpectations(t)
			userStore.AssertExpectations(t)
			blobs.AssertExpectations(t)
		})
	}
}

func TestCapsule_Update_Windows(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ownerID := uuid.New()
	capsuleID := uuid.New()

	tests := []struct {
		name     string
		unlockAt time.Time
		wantErr  error
	}{
		{
			name:     "edit allowed well before unlock",
			unlockAt: now.Add(48 * time.Hour),
		},
		{
			name:     "edit allowed just outside the final hour",
			unlockAt: now.Add(61 * time.Minute),
		},
		{
			name:     "edit blocked inside the final hour",
			unlockAt: now.Add(59 * time.Minute),
			wantErr:  model.ErrEditWindowClosed,
		},
		{
			name:     "edit blocked exactly at unlock",
			unlockAt: now,
			wantErr:  model.ErrAlreadyUnlocked,
		},
		{
			name:     "edit blocked after unlock",
			unlockAt: now.Add(-time.Hour),
			wantErr:  model.ErrAlreadyUnlocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capsuleStore := &MockCapsuleStore{}
			userStore := &MockUserStore{}
			blobs := &MockBlobStore{}

			stored := model.Capsule{ID: capsuleID, OwnerID: ownerID, UnlockAt: tt.unlockAt}
			capsuleStore.On("GetByID", mock.Anything, capsuleID).Return(stored, nil)
			if tt.wantErr == nil {
				capsuleStore.On("Update", mock.Anything, capsuleID, mock.MatchedBy(func(f model.CapsuleUpdate) bool {
					return f.Title != nil && *f.Title != "New title"
				})).Return(nil)
			}

			s := newTestCapsuleService(capsuleStore, userStore, blobs, now)

			title := "New title"
			_, err := s.Update(context.Background(), capsuleID, ownerID, model.UpdateCapsuleParams{Title: &title})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			capsuleStore.AssertExpectations(t)
		})
	}
}

func TestCapsule_Update_NotOwner(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	capsuleID := uuid.New()

	capsuleStore := &MockCapsuleStore{}
	capsuleStore.On("GetByID", mock.Anything, capsuleID).
		Return(model.Capsule{ID: capsuleID, OwnerID: uuid.New(), UnlockAt: now.Add(48 * time.Hour)}, nil)

	s := newTestCapsuleService(capsuleStore, &MockUserStore{}, &MockBlobStore{}, now)

	title := "New title"
	_, err := s.Update(context.Background(), capsuleID, uuid.New(), model.UpdateCapsuleParams{Title: &title})

	assert.ErrorIs(t, err, model.ErrNotOwner)
}

func TestCapsule_Delete_Windows(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ownerID := uuid.New()
	capsuleID := uuid.New()

	tests := []struct {
		name     string
		unlockAt time.Time
		wantErr  error
	}{
		{
			name:     "delete allowed outside the final day",
			unlockAt: now.Add(25 * time.Hour),
		},
		{
			name:     "delete blocked inside the final day",
			unlockAt: now.Add(23*time.Hour + 59*time.Minute),
			wantErr:  model.ErrDeleteWindowClosed,
		},
		{
			name:     "delete allowed again once unlocked",
			unlockAt: now.Add(-time.Minute),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capsuleStore := &MockCapsuleStore{}
			blobs := &MockBlobStore{}

			stored := model.Capsule{ID: capsuleID, OwnerID: ownerID, UnlockAt: tt.unlockAt, AttachmentKey: "owner/capsule/blob"}
			capsuleStore.On("GetByID", mock.Anything, capsuleID).Return(stored, nil)
			if tt.wantErr == nil {
				blobs.On("Delete", mock.Anything, "owner/capsule/blob").Return(nil)
				capsuleStore.On("Delete", mock.Anything, capsuleID).Return(nil)
			}

			s := newTestCapsuleService(capsuleStore, &MockUserStore{}, blobs, now)

			err := s.Delete(context.Background(), capsuleID, ownerID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			capsuleStore.AssertExpectations(t)
			blobs.AssertExpectations(t)
		})
	}
}

func TestCapsule_Get(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ownerID := uuid.New()
	capsuleID := uuid.New()
	recipientEmail := "Friend@Example.com"

	cipher := testCipher()
	encTitle, err := cipher.Encrypt("Hello")
	require.NoError(t, err)
	encMessage, err := cipher.Encrypt("From the past")
	require.NoError(t, err)
	encRecipient, err := cipher.Encrypt("friend@example.com")
	require.NoError(t, err)

	storedCapsule := func(unlockAt time.Time) model.Capsule {
		return model.Capsule{
			ID:            capsuleID,
			OwnerID:       ownerID,
			Title:         encTitle,
			Message:       encMessage,
			Recipient:     encRecipient,
			RecipientHash: model.HashRecipient(recipientEmail),
			UnlockAt:      unlockAt,
			Status:        model.StatusPending,
		}
	}

	tests := []struct {
		name     string
		unlockAt time.Time
		caller   model.Identity
		wantErr  error
	}{
		{
			name:     "owner reads before unlock",
			unlockAt: now.Add(time.Hour),
			caller:   model.Identity{UserID: ownerID, Email: "owner@example.com"},
		},
		{
			name:     "recipient blocked before unlock",
			unlockAt: now.Add(time.Hour),
			caller:   model.Identity{UserID: uuid.New(), Email: recipientEmail},
			wantErr:  model.ErrSealed,
		},
		{
			name:     "recipient reads after unlock",
			unlockAt: now.Add(-time.Hour),
			caller:   model.Identity{UserID: uuid.New(), Email: recipientEmail},
		},
		{
			name:     "recipient email matching is case insensitive",
			unlockAt: now.Add(-time.Hour),
			caller:   model.Identity{UserID: uuid.New(), Email: "FRIEND@example.COM"},
		},
		{
			name:     "stranger blocked even after unlock",
			unlockAt: now.Add(-time.Hour),
			caller:   model.Identity{UserID: uuid.New(), Email: "stranger@example.com"},
			wantErr:  model.ErrNotOwner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capsuleStore := &MockCapsuleStore{}
			capsuleStore.On("GetByID", mock.Anything, capsuleID).Return(storedCapsule(tt.unlockAt), nil)

			s := newTestCapsuleService(capsuleStore, &MockUserStore{}, &MockBlobStore{}, now)

			view, err := s.Get(context.Background(), capsuleID, tt.caller)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Hello", view.Title)
			assert.Equal(t, "From the past", view.Message)
			assert.Equal(t, "friend@example.com", view.Recipient)
		})
	}
}

func TestCapsule_GetPublic(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	capsuleID := uuid.New()

	cipher := testCipher()
	encTitle, err := cipher.Encrypt("Hello")
	require.NoError(t, err)

	t.Run("sealed before unlock", func(t *testing.T) {
		capsuleStore := &MockCapsuleStore{}
		capsuleStore.On("GetByID", mock.Anything, capsuleID).
			Return(model.Capsule{ID: capsuleID, Title: encTitle, UnlockAt: now.Add(time.Hour)}, nil)

		s := newTestCapsuleService(capsuleStore, &MockUserStore{}, &MockBlobStore{}, now)

		_, err := s.GetPublic(context.Background(), capsuleID)
		assert.ErrorIs(t, err, model.ErrSealed)
	})

	t.Run("readable after unlock", func(t *testing.T) {
		capsuleStore := &MockCapsuleStore{}
		capsuleStore.On("GetByID", mock.Anything, capsuleID).
			Return(model.Capsule{ID: capsuleID, Title: encTitle, UnlockAt: now.Add(-time.Hour)}, nil)

		s := newTestCapsuleService(capsuleStore, &MockUserStore{}, &MockBlobStore{}, now)

		view, err := s.GetPublic(context.Background(), capsuleID)
		require.NoError(t, err)
		assert.Equal(t, "Hello", view.Title)
	})
}

func TestCapsule_ListReceived_SealedStubs(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	email := "friend@example.com"

	cipher := testCipher()
	encTitle, err := cipher.Encrypt("Open me")
	require.NoError(t, err)

	sealed := model.Capsule{ID: uuid.New(), OwnerID: uuid.New(), Title: encTitle, UnlockAt: now.Add(time.Hour)}
	unlocked := model.Capsule{ID: uuid.New(), OwnerID: uuid.New(), Title: encTitle, UnlockAt: now.Add(-time.Hour)}

	capsuleStore := &MockCapsuleStore{}
	capsuleStore.On("GetByRecipientHash", mock.Anything, model.HashRecipient(email)).
		Return([]model.Capsule{sealed, unlocked}, nil)

	s := newTestCapsuleService(capsuleStore, &MockUserStore{}, &MockBlobStore{}, now)

	views, err := s.ListReceived(context.Background(), email)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.True(t, views[0].Sealed)
	assert.Empty(t, views[0].Title)
	assert.Equal(t, sealed.UnlockAt, views[0].UnlockAt)

	assert.False(t, views[1].Sealed)
	assert.Equal(t, "Open me", views[1].Title)
}
