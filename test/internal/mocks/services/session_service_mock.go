package services

import (
	"context"
	"ticketing-core/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type SessionServiceMock struct {
	mock.Mock
}

func NewSessionServiceMock() *SessionServiceMock {
	return &SessionServiceMock{}
}

func (m *SessionServiceMock) Create(ctx context.Context, session *model.Session) (*model.Session, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *SessionServiceMock) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *SessionServiceMock) GetStats(ctx context.Context, sessionID uuid.UUID) (*model.SessionStats, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SessionStats), args.Error(1)
}

func (m *SessionServiceMock) RecentCheckins(ctx context.Context, sessionID uuid.UUID) ([]model.RecentCheckin, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RecentCheckin), args.Error(1)
}

func (m *SessionServiceMock) OpenGate(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}
