package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ghostpost/capsule-server/internal/envelope"
	"github.com/ghostpost/capsule-server/internal/model"
	"github.com/ghostpost/capsule-server/internal/testutil"
)

// MockCapsuleStore mocks the CapsuleStore interface
type MockCapsuleStore struct {
	mock.Mock
}

func (m *MockCapsuleStore) Create(ctx context.Context, capsule model.Capsule) (model.Capsule, error) {
	args := m.Called(ctx, capsule)
	return args.Get(0).(model.Capsule), args.Error(1)
}

func (m *MockCapsuleStore) GetByID(ctx context.Context, id uuid.UUID) (model.Capsule, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Capsule), args.Error(1)
}

func (m *MockCapsuleStore) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Capsule, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]model.Capsule), args.Error(1)
}

func (m *MockCapsuleStore) GetByRecipientHash(ctx context.Context, recipientHash string) ([]model.Capsule, error) {
	args := m.Called(ctx, recipientHash)
	return args.Get(0).([]model.Capsule), args.Error(1)
}

func (m *MockCapsuleStore) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

func (m *MockCapsuleStore) ListDueUndelivered(ctx context.Context, now time.Time) ([]model.Capsule, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]model.Capsule), args.Error(1)
}

func (m *MockCapsuleStore) Update(ctx context.Context, id uuid.UUID, fields model.CapsuleUpdate) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockCapsuleStore) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCapsuleStore) MarkUndelivered(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCapsuleStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockUserStore mocks the UserStore interface
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) Upsert(ctx context.Context, user model.User) (model.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) SetPlanTier(ctx context.Context, id uuid.UUID, tier model.PlanTier) error {
	args := m.Called(ctx, id, tier)
	return args.Error(0)
}

// MockBlobStore mocks the BlobStore interface
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Upload(ctx context.Context, key string, reader io.Reader) error {
	args := m.Called(ctx, key, reader)
	return args.Error(0)
}

func (m *MockBlobStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// MockNotifier mocks the Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, n model.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func testCipher() *envelope.Cipher {
	c, err := envelope.New(testKeyHex, testutil.MakeNoopLogger())
	if err != nil {
		panic(err)
	}
	return c
}
