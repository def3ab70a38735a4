package services

import (
	"context"
	"ticketing-core/internal/model"

	"github.com/stretchr/testify/mock"
)

type CheckinServiceMock struct {
	mock.Mock
}

func NewCheckinServiceMock() *CheckinServiceMock {
	return &CheckinServiceMock{}
}

func (m *CheckinServiceMock) CheckIn(ctx context.Context, code string, requestedSessionID string, operatorID string) (*model.CheckinResult, error) {
	args := m.Called(ctx, code, requestedSessionID, operatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckinResult), args.Error(1)
}

func (m *CheckinServiceMock) UndoCheckIn(ctx context.Context, code string, operatorID string) (*model.UndoResult, error) {
	args := m.Called(ctx, code, operatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UndoResult), args.Error(1)
}

func (m *CheckinServiceMock) Preview(ctx context.Context, code string, requestedSessionID string) (*model.CheckinResult, error) {
	args := m.Called(ctx, code, requestedSessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckinResult), args.Error(1)
}
