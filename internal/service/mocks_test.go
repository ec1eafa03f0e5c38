package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/finance-control-api/internal/mail"
	"github.com/iliyamo/finance-control-api/internal/model"
	"github.com/iliyamo/finance-control-api/internal/repository"
)

// MockSessionStore implements SessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, userID uint64, sessid string, expiresAt time.Time) (*model.Session, error) {
	args := m.Called(ctx, userID, sessid, expiresAt)
	sess, _ := args.Get(0).(*model.Session)
	return sess, args.Error(1)
}

func (m *MockSessionStore) Find(ctx context.Context, f repository.SessionFilter) (*model.Session, error) {
	args := m.Called(ctx, f)
	sess, _ := args.Get(0).(*model.Session)
	return sess, args.Error(1)
}

func (m *MockSessionStore) Revoke(ctx context.Context, f repository.SessionFilter) (int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(int64), args.Error(1)
}

// MockSender implements mail.Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockDispatcher implements Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
