package service

import (
	"context"
	"testing"
	"time"

	"ticketing-core/internal/model"
	apperrors "ticketing-core/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedeemService(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		couponID := createTestCoupon(t, model.Coupon{
			Code:          "EARLYBIRD",
			DiscountType:  model.DiscountTypePercentage,
			DiscountValue: 10,
			IsActive:      true,
		})

		svc := newCouponService()

		result, err := svc.Redeem(ctx, model.RedeemRequest{
			Code:     "EARLYBIRD",
			UserID:   "user-1",
			Subtotal: 250,
			OrderRef: "order-1",
		})
		require.NoError(t, err)
		assert.Equal(t, model.RedemptionOK, result.Outcome)
		assert.Equal(t, 25.0, result.Discount)
		assert.Equal(t, 225.0, result.NewTotal)

		assert.Equal(t, 1, couponUsedCountInDB(t, couponID))

		var redemptions int
		err = testDB.QueryRow(ctx,
			"SELECT COUNT(*) FROM coupon_redemptions WHERE coupon_id = $1 AND user_id = $2",
			couponID, "user-1").Scan(&redemptions)
		require.NoError(t, err)
		assert.Equal(t, 1, redemptions)
	})

	t.Run("CaseInsensitiveCode", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		createTestCoupon(t, model.Coupon{
			Code:          "EARLYBIRD",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 30,
			IsActive:      true,
		})

		svc := newCouponService()

		result, err := svc.Redeem(ctx, model.RedeemRequest{
			Code:     "earlybird",
			UserID:   "user-1",
			Subtotal: 100,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RedemptionOK, result.Outcome)
		assert.Equal(t, 30.0, result.Discount)
	})

	t.Run("NotFound", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		svc := newCouponService()

		result, err := svc.Redeem(ctx, model.RedeemRequest{
			Code:     "NOPE",
			UserID:   "user-1",
			Subtotal: 100,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RedemptionNotFound, result.Outcome)
	})

	// 停用的券與不存在的券對外不可區分
	t.Run("InactiveLooksLikeNotFound", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		createTestCoupon(t, model.Coupon{
			Code:          "RETIRED",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 10,
			IsActive:      false,
		})

		svc := newCouponService()

		result, err := svc.Redeem(ctx, model.RedeemRequest{
			Code:     "RETIRED",
			UserID:   "user-1",
			Subtotal: 100,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RedemptionNotFound, result.Outcome)
	})

	t.Run("DateWindow", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		createTestCoupon(t, model.Coupon{
			Code:          "FUTURE",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 10,
			IsActive:      true,
			StartsAt:      timePtr(time.Now().Add(24 * time.Hour)),
		})
		createTestCoupon(t, model.Coupon{
			Code:          "PAST",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 10,
			IsActive:      true,
			ExpiresAt:     timePtr(time.Now().Add(-24 * time.Hour)),
		})

		svc := newCouponService()

		notStarted, err := svc.Redeem(ctx, model.RedeemRequest{Code: "FUTURE", UserID: "user-1", Subtotal: 100})
		require.NoError(t, err)
		assert.Equal(t, model.RedemptionNotStarted, notStarted.Outcome)
		assert.NotNil(t, notStarted.StartsAt)

		expired, err := svc.Redeem(ctx, model.RedeemRequest{Code: "PAST", UserID: "user-1", Subtotal: 100})
		require.NoError(t, err)
		assert.Equal(t, model.RedemptionExpired, expired.Outcome)
		assert.NotNil(t, expired.ExpiresAt)
	})

	t.Run("EventMismatch", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		eventID := uuid.New()
		createTestCoupon(t, model.Coupon{
			Code:          "EVENTONLY",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 10,
			IsActive:      true,
			EventID:       &eventID,
		})

		svc := newCouponService()

		otherEvent := uuid.New()
		mismatch, err := svc.Redeem(ctx, model.RedeemRequest{
			Code: "EVENTONLY", UserID: "user-1", Subtotal: 100, EventID: &otherEvent,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RedemptionEventMismatch, mismatch.Outcome)

		// an order without an event cannot use an event-bound coupon either
		missing, err := svc.Redeem(ctx, model.RedeemRequest{
			Code: "EVENTONLY", UserID: "user-1", Subtotal: 100,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RedemptionEventMismatch, missing.Outcome)

		match, err := svc.Redeem(ctx, model.RedeemRequest{
			Code: "EVENTONLY", UserID: "user-1", Subtotal: 100, EventID: &eventID,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RedemptionOK, match.Outcome)
	})

	t.Run("BelowMinimum", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		couponID := createTestCoupon(t, model.Coupon{
			Code:          "BIGSPEND",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 50,
			MinPurchase:   float64Ptr(500),
			IsActive:      true,
		})

		svc := newCouponService()

		result, err := svc.Redeem(ctx, model.RedeemRequest{
			Code: "BIGSPEND", UserID: "user-1", Subtotal: 499.99,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RedemptionBelowMinimum, result.Outcome)
		require.NotNil(t, result.MinPurchase)
		assert.Equal(t, 500.0, *result.MinPurchase)

		// rejection reserved nothing
		assert.Equal(t, 0, couponUsedCountInDB(t, couponID))
	})

	t.Run("Exhausted", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		couponID := createTestCoupon(t, model.Coupon{
			Code:          "LIMITED",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 10,
			UsageLimit:    intPtr(1),
			UsedCount:     1,
			IsActive:      true,
		})

		svc := newCouponService()

		result, err := svc.Redeem(ctx, model.RedeemRequest{
			Code: "LIMITED", UserID: "user-1", Subtotal: 100,
		})
		require.NoError(t, err)
		assert.Equal(t, model.RedemptionExhausted, result.Outcome)
		assert.Equal(t, 1, couponUsedCountInDB(t, couponID))
	})

	t.Run("PerUserLimit", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		createTestCoupon(t, model.Coupon{
			Code:          "ONCEEACH",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 10,
			PerUserLimit:  1,
			IsActive:      true,
		})

		svc := newCouponService()

		first, err := svc.Redeem(ctx, model.RedeemRequest{Code: "ONCEEACH", UserID: "user-1", Subtotal: 100})
		require.NoError(t, err)
		assert.Equal(t, model.RedemptionOK, first.Outcome)

		second, err := svc.Redeem(ctx, model.RedeemRequest{Code: "ONCEEACH", UserID: "user-1", Subtotal: 100})
		require.NoError(t, err)
		assert.Equal(t, model.RedemptionPerUserLimitReached, second.Outcome)

		// a different user still has their own allowance
		other, err := svc.Redeem(ctx, model.RedeemRequest{Code: "ONCEEACH", UserID: "user-2", Subtotal: 100})
		require.NoError(t, err)
		assert.Equal(t, model.RedemptionOK, other.Outcome)
	})
}

func TestReleaseService(t *testing.T) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		couponID := createTestCoupon(t, model.Coupon{
			Code:          "EARLYBIRD",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 10,
			PerUserLimit:  1,
			IsActive:      true,
		})

		svc := newCouponService()

		redeemed, err := svc.Redeem(ctx, model.RedeemRequest{Code: "EARLYBIRD", UserID: "user-1", Subtotal: 100})
		require.NoError(t, err)
		require.Equal(t, model.RedemptionOK, redeemed.Outcome)
		require.Equal(t, 1, couponUsedCountInDB(t, couponID))

		err = svc.Release(ctx, "EARLYBIRD", "user-1")
		require.NoError(t, err)
		assert.Equal(t, 0, couponUsedCountInDB(t, couponID))

		// the released allowance is usable again, per-user cap included
		again, err := svc.Redeem(ctx, model.RedeemRequest{Code: "EARLYBIRD", UserID: "user-1", Subtotal: 100})
		require.NoError(t, err)
		assert.Equal(t, model.RedemptionOK, again.Outcome)
	})

	t.Run("NothingToRelease", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		createTestCoupon(t, model.Coupon{
			Code:          "EARLYBIRD",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 10,
			IsActive:      true,
		})

		svc := newCouponService()

		err := svc.Release(ctx, "EARLYBIRD", "user-1")
		assert.ErrorIs(t, err, apperrors.ErrRedemptionNotFound)
	})

	t.Run("UnknownCoupon", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		svc := newCouponService()

		err := svc.Release(ctx, "NOPE", "user-1")
		assert.ErrorIs(t, err, apperrors.ErrCouponNotFound)
	})
}

func TestValidateService(t *testing.T) {
	ctx := context.Background()

	t.Run("DoesNotReserve", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		couponID := createTestCoupon(t, model.Coupon{
			Code:          "EARLYBIRD",
			DiscountType:  model.DiscountTypePercentage,
			DiscountValue: 20,
			MaxDiscount:   float64Ptr(50),
			IsActive:      true,
		})

		svc := newCouponService()

		for i := 0; i < 3; i++ {
			result, err := svc.Validate(ctx, "EARLYBIRD", "user-1", model.OrderContext{Subtotal: 1000})
			require.NoError(t, err)
			assert.Equal(t, model.RedemptionOK, result.Outcome)
			assert.Equal(t, 50.0, result.Discount)
			assert.Equal(t, 950.0, result.NewTotal)
		}

		assert.Equal(t, 0, couponUsedCountInDB(t, couponID))
	})

	t.Run("ReportsRejections", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		createTestCoupon(t, model.Coupon{
			Code:          "BIGSPEND",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 50,
			MinPurchase:   float64Ptr(500),
			IsActive:      true,
		})

		svc := newCouponService()

		result, err := svc.Validate(ctx, "BIGSPEND", "user-1", model.OrderContext{Subtotal: 100})
		require.NoError(t, err)
		assert.Equal(t, model.RedemptionBelowMinimum, result.Outcome)
	})
}
