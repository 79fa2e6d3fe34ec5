package access

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"slotbook/internal/database"
)

type mockAdmins struct {
	mock.Mock
}

func (m *mockAdmins) IsAdmin(ctx context.Context, uid string) (bool, error) {
	args := m.Called(ctx, uid)
	return args.Bool(0), args.Error(1)
}

func (m *mockAdmins) AddAdmin(ctx context.Context, uid, addedBy string) error {
	return m.Called(ctx, uid, addedBy).Error(0)
}

type mockDenylist struct {
	mock.Mock
}

func (m *mockDenylist) IsBlocked(ctx context.Context, uid string) (bool, error) {
	args := m.Called(ctx, uid)
	return args.Bool(0), args.Error(1)
}

func (m *mockDenylist) GetBlockedRequester(ctx context.Context, uid string) (*database.BlockedRequester, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.BlockedRequester), args.Error(1)
}

func (m *mockDenylist) BlockRequester(ctx context.Context, uid, reason, blockedBy string) error {
	return m.Called(ctx, uid, reason, blockedBy).Error(0)
}

func (m *mockDenylist) UnblockRequester(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

func (m *mockDenylist) ListBlockedRequesters(ctx context.Context) ([]database.BlockedRequester, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]database.BlockedRequester), args.Error(1)
}

func newTestService(admins *mockAdmins, denylist *mockDenylist) *Service {
	return NewService(admins, denylist, zerolog.New(io.Discard))
}

func TestIsAdmin(t *testing.T) {
	admins := new(mockAdmins)
	svc := newTestService(admins, new(mockDenylist))

	admins.On("IsAdmin", mock.Anything, "admin-1").Return(true, nil)

	ok, err := svc.IsAdmin(context.Background(), "admin-1")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestIsAdminEmptyUID(t *testing.T) {
	admins := new(mockAdmins)
	svc := newTestService(admins, new(mockDenylist))

	ok, err := svc.IsAdmin(context.Background(), "")
	assert.NoError(t, err)
	assert.False(t, ok)
	admins.AssertNotCalled(t, "IsAdmin", mock.Anything, mock.Anything)
}

func TestBlockRequester(t *testing.T) {
	admins := new(mockAdmins)
	denylist := new(mockDenylist)
	svc := newTestService(admins, denylist)

	admins.On("IsAdmin", mock.Anything, "admin-1").Return(true, nil)
	denylist.On("BlockRequester", mock.Anything, "user-9", "spam", "admin-1").Return(nil)

	err := svc.BlockRequester(context.Background(), "user-9", "spam", "admin-1")
	assert.NoError(t, err)
	denylist.AssertExpectations(t)
}

func TestBlockRequesterNonAdmin(t *testing.T) {
	admins := new(mockAdmins)
	denylist := new(mockDenylist)
	svc := newTestService(admins, denylist)

	admins.On("IsAdmin", mock.Anything, "user-1").Return(false, nil)

	err := svc.BlockRequester(context.Background(), "user-9", "spam", "user-1")
	assert.Error(t, err)
	denylist.AssertNotCalled(t, "BlockRequester", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddAdmin(t *testing.T) {
	admins := new(mockAdmins)
	svc := newTestService(admins, new(mockDenylist))

	admins.On("IsAdmin", mock.Anything, "admin-1").Return(true, nil)
	admins.On("AddAdmin", mock.Anything, "user-5", "admin-1").Return(nil)

	assert.NoError(t, svc.AddAdmin(context.Background(), "user-5", "admin-1"))
	admins.AssertExpectations(t)
}

func TestAddAdminNonAdmin(t *testing.T) {
	admins := new(mockAdmins)
	svc := newTestService(admins, new(mockDenylist))

	admins.On("IsAdmin", mock.Anything, "user-1").Return(false, nil)

	assert.Error(t, svc.AddAdmin(context.Background(), "user-5", "user-1"))
	admins.AssertNotCalled(t, "AddAdmin", mock.Anything, mock.Anything, mock.Anything)
}

func TestUnblockRequester(t *testing.T) {
	denylist := new(mockDenylist)
	svc := newTestService(new(mockAdmins), denylist)

	denylist.On("UnblockRequester", mock.Anything, "user-9").Return(nil)

	assert.NoError(t, svc.UnblockRequester(context.Background(), "user-9"))
}

func TestListBlocked(t *testing.T) {
	denylist := new(mockDenylist)
	svc := newTestService(new(mockAdmins), denylist)

	entries := []database.BlockedRequester{
		{UID: "user-9", Reason: "spam", BlockedBy: "admin-1", BlockedAt: time.Now()},
	}
	denylist.On("ListBlockedRequesters", mock.Anything).Return(entries, nil)

	blocked, err := svc.ListBlocked(context.Background())
	assert.NoError(t, err)
	assert.Len(t, blocked, 1)
}
