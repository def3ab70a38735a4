package services

import (
	"context"
	"ticketing-core/internal/model"

	"github.com/stretchr/testify/mock"
)

type CouponServiceMock struct {
	mock.Mock
}

func NewCouponServiceMock() *CouponServiceMock {
	return &CouponServiceMock{}
}

func (m *CouponServiceMock) Redeem(ctx context.Context, req model.RedeemRequest) (*model.RedemptionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RedemptionResult), args.Error(1)
}

func (m *CouponServiceMock) Release(ctx context.Context, code string, userID string) error {
	args := m.Called(ctx, code, userID)
	return args.Error(0)
}

func (m *CouponServiceMock) Validate(ctx context.Context, code string, userID string, orderCtx model.OrderContext) (*model.RedemptionResult, error) {
	args := m.Called(ctx, code, userID, orderCtx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RedemptionResult), args.Error(1)
}
