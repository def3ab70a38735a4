package service

import (
	"context"
	"errors"
	"fmt"
	"ticketing-core/internal/model"
	"ticketing-core/internal/monitoring"
	"ticketing-core/internal/repository"
	apperrors "ticketing-core/pkg/app_errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CouponService decides and atomically reserves coupon eligibility. The
// coupon row lock serializes racing redemptions of the same code, so two
// callers both seeing used_count = limit-1 cannot both commit.
type CouponService interface {
	// 兌換：驗證資格並原子性保留一次使用額度
	Redeem(ctx context.Context, req model.RedeemRequest) (*model.RedemptionResult, error)
	// 釋放：訂單放棄時的補償操作，退回一次使用額度
	Release(ctx context.Context, code string, userID string) error
	// 試算：只驗證與計算折扣，不保留額度
	Validate(ctx context.Context, code string, userID string, orderCtx model.OrderContext) (*model.RedemptionResult, error)
}

type CouponServiceImpl struct {
	pool *pgxpool.Pool
	repo repository.CouponRepository
}

func NewCouponService(pool *pgxpool.Pool, repo repository.CouponRepository) CouponService {
	return &CouponServiceImpl{
		pool: pool,
		repo: repo,
	}
}

func (s *CouponServiceImpl) Redeem(ctx context.Context, req model.RedeemRequest) (*model.RedemptionResult, error) {
	result, err := s.redeem(ctx, req)
	if err != nil {
		return nil, err
	}
	monitoring.ObserveRedemption(string(result.Outcome))
	return result, nil
}

func (s *CouponServiceImpl) redeem(ctx context.Context, req model.RedeemRequest) (*model.RedemptionResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin redemption tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// row lock: every check below holds at commit time
	coupon, err := s.repo.FindByCodeForUpdate(ctx, tx, req.Code)
	if err != nil {
		if errors.Is(err, apperrors.ErrCouponNotFound) {
			return &model.RedemptionResult{Outcome: model.RedemptionNotFound, Code: req.Code}, nil
		}
		return nil, fmt.Errorf("read coupon %q: %w", req.Code, err)
	}

	orderCtx := model.OrderContext{Subtotal: req.Subtotal, EventID: req.EventID, OrderRef: req.OrderRef}

	userCount, err := s.repo.CountRedemptions(ctx, tx, coupon.ID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("count redemptions: %w", err)
	}

	if rejected := evaluateCoupon(coupon, userCount, orderCtx, time.Now().UTC()); rejected != nil {
		return rejected, nil
	}

	discount := coupon.Discount(req.Subtotal)

	err = s.repo.InsertRedemption(ctx, tx, &model.CouponRedemption{
		CouponID: coupon.ID,
		UserID:   req.UserID,
		OrderRef: req.OrderRef,
		Discount: discount,
	})
	if err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}

	// guarded increment: the cap check repeats at write time
	if err := s.repo.IncrementUsage(ctx, tx, coupon.ID); err != nil {
		if errors.Is(err, apperrors.ErrStatusConflict) {
			return &model.RedemptionResult{Outcome: model.RedemptionExhausted, Code: coupon.Code}, nil
		}
		return nil, fmt.Errorf("increment usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit redemption: %w", err)
	}

	return &model.RedemptionResult{
		Outcome:  model.RedemptionOK,
		Code:     coupon.Code,
		Discount: discount,
		NewTotal: newTotal(req.Subtotal, discount),
	}, nil
}

func (s *CouponServiceImpl) Release(ctx context.Context, code string, userID string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin release tx: %w", err)
	}
	defer tx.Rollback(ctx)

	coupon, err := s.repo.FindByCodeForUpdate(ctx, tx, code)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteLatestRedemption(ctx, tx, coupon.ID, userID); err != nil {
		return err
	}

	if err := s.repo.DecrementUsage(ctx, tx, coupon.ID); err != nil {
		return fmt.Errorf("decrement usage: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *CouponServiceImpl) Validate(ctx context.Context, code string, userID string, orderCtx model.OrderContext) (*model.RedemptionResult, error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrCouponNotFound) {
			return &model.RedemptionResult{Outcome: model.RedemptionNotFound, Code: code}, nil
		}
		return nil, fmt.Errorf("read coupon %q: %w", code, err)
	}

	// snapshot check only; Redeem re-validates under the row lock
	userCount, err := s.repo.CountUserRedemptions(ctx, coupon.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("count redemptions: %w", err)
	}

	if rejected := evaluateCoupon(coupon, userCount, orderCtx, time.Now().UTC()); rejected != nil {
		return rejected, nil
	}

	discount := coupon.Discount(orderCtx.Subtotal)
	return &model.RedemptionResult{
		Outcome:  model.RedemptionOK,
		Code:     coupon.Code,
		Discount: discount,
		NewTotal: newTotal(orderCtx.Subtotal, discount),
	}, nil
}

// evaluateCoupon runs the eligibility chain in a fixed order; the first
// failing check names the rejection. Returns nil when every check passes.
func evaluateCoupon(coupon *model.Coupon, userRedemptions int, orderCtx model.OrderContext, now time.Time) *model.RedemptionResult {
	if !coupon.IsActive {
		return &model.RedemptionResult{Outcome: model.RedemptionNotFound, Code: coupon.Code}
	}

	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return &model.RedemptionResult{
			Outcome:  model.RedemptionNotStarted,
			Code:     coupon.Code,
			StartsAt: coupon.StartsAt,
		}
	}
	if coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt) {
		return &model.RedemptionResult{
			Outcome:   model.RedemptionExpired,
			Code:      coupon.Code,
			ExpiresAt: coupon.ExpiresAt,
		}
	}

	if coupon.EventID != nil {
		if orderCtx.EventID == nil || *orderCtx.EventID != *coupon.EventID {
			return &model.RedemptionResult{Outcome: model.RedemptionEventMismatch, Code: coupon.Code}
		}
	}

	if coupon.MinPurchase != nil && orderCtx.Subtotal < *coupon.MinPurchase {
		return &model.RedemptionResult{
			Outcome:     model.RedemptionBelowMinimum,
			Code:        coupon.Code,
			MinPurchase: coupon.MinPurchase,
		}
	}

	if coupon.Exhausted() {
		return &model.RedemptionResult{Outcome: model.RedemptionExhausted, Code: coupon.Code}
	}

	if userRedemptions >= coupon.PerUserLimit {
		return &model.RedemptionResult{Outcome: model.RedemptionPerUserLimitReached, Code: coupon.Code}
	}

	return nil
}

func newTotal(subtotal, discount float64) float64 {
	total, _ := decimal.NewFromFloat(subtotal).
		Sub(decimal.NewFromFloat(discount)).
		Round(2).
		Float64()
	return total
}
