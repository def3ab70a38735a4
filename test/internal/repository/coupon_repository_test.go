package repository

import (
	"context"
	"testing"

	"ticketing-core/internal/model"
	"ticketing-core/internal/repository"
	apperrors "ticketing-core/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createCoupon(t *testing.T, repo repository.CouponRepository, coupon model.Coupon) *model.Coupon {
	t.Helper()
	if coupon.Name == "" {
		coupon.Name = "Test Coupon"
	}
	if coupon.PerUserLimit == 0 {
		coupon.PerUserLimit = 1
	}
	created, err := repo.Create(context.Background(), &coupon)
	if err != nil {
		t.Fatalf("Failed to create coupon: %v", err)
	}
	return created
}

func inTx(t *testing.T, fn func(tx pgx.Tx) error) error {
	t.Helper()
	ctx := context.Background()

	tx, err := testDB.BeginTx(ctx, pgx.TxOptions{})
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func TestCouponFindByCode(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCouponRepository(testDB)

	t.Run("CaseInsensitive", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		createCoupon(t, repo, model.Coupon{
			Code:          "earlybird",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 30,
			IsActive:      true,
		})

		// stored upper-case, matched regardless of the caller's casing
		coupon, err := repo.FindByCode(ctx, "EarlyBird")
		require.NoError(t, err)
		assert.Equal(t, "EARLYBIRD", coupon.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		_, err := repo.FindByCode(ctx, "NOPE")
		assert.ErrorIs(t, err, apperrors.ErrCouponNotFound)
	})
}

func TestIncrementUsage(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCouponRepository(testDB)

	t.Run("GuardedByLimit", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		coupon := createCoupon(t, repo, model.Coupon{
			Code:          "LIMITED",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 10,
			UsageLimit:    intPtr(2),
			IsActive:      true,
		})

		for i := 0; i < 2; i++ {
			err := inTx(t, func(tx pgx.Tx) error {
				return repo.IncrementUsage(ctx, tx, coupon.ID)
			})
			require.NoError(t, err)
		}

		// third increment finds used_count == usage_limit and writes nothing
		err := inTx(t, func(tx pgx.Tx) error {
			return repo.IncrementUsage(ctx, tx, coupon.ID)
		})
		assert.ErrorIs(t, err, apperrors.ErrStatusConflict)

		refreshed, err := repo.FindByCode(ctx, "LIMITED")
		require.NoError(t, err)
		assert.Equal(t, 2, refreshed.UsedCount)
	})

	t.Run("UnlimitedNeverBlocks", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		coupon := createCoupon(t, repo, model.Coupon{
			Code:          "OPENEND",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 10,
			IsActive:      true,
		})

		for i := 0; i < 5; i++ {
			err := inTx(t, func(tx pgx.Tx) error {
				return repo.IncrementUsage(ctx, tx, coupon.ID)
			})
			require.NoError(t, err)
		}

		refreshed, err := repo.FindByCode(ctx, "OPENEND")
		require.NoError(t, err)
		assert.Equal(t, 5, refreshed.UsedCount)
	})
}

func TestDecrementUsage(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCouponRepository(testDB)

	t.Run("StopsAtZero", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		coupon := createCoupon(t, repo, model.Coupon{
			Code:          "EARLYBIRD",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 10,
			IsActive:      true,
		})

		err := inTx(t, func(tx pgx.Tx) error {
			return repo.DecrementUsage(ctx, tx, coupon.ID)
		})
		assert.ErrorIs(t, err, apperrors.ErrStatusConflict)
	})
}

func TestRedemptionRows(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCouponRepository(testDB)

	t.Run("InsertCountDelete", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		coupon := createCoupon(t, repo, model.Coupon{
			Code:          "EARLYBIRD",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 10,
			PerUserLimit:  3,
			IsActive:      true,
		})

		for i := 0; i < 2; i++ {
			err := inTx(t, func(tx pgx.Tx) error {
				return repo.InsertRedemption(ctx, tx, &model.CouponRedemption{
					CouponID: coupon.ID,
					UserID:   "user-1",
					OrderRef: "order-1",
					Discount: 10,
				})
			})
			require.NoError(t, err)
		}

		count, err := repo.CountUserRedemptions(ctx, coupon.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		// a different user's count is independent
		count, err = repo.CountUserRedemptions(ctx, coupon.ID, "user-2")
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		err = inTx(t, func(tx pgx.Tx) error {
			return repo.DeleteLatestRedemption(ctx, tx, coupon.ID, "user-1")
		})
		require.NoError(t, err)

		count, err = repo.CountUserRedemptions(ctx, coupon.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("DeleteWithoutRows", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		coupon := createCoupon(t, repo, model.Coupon{
			Code:          "EARLYBIRD",
			DiscountType:  model.DiscountTypeFixed,
			DiscountValue: 10,
			IsActive:      true,
		})

		err := inTx(t, func(tx pgx.Tx) error {
			return repo.DeleteLatestRedemption(ctx, tx, coupon.ID, "user-1")
		})
		assert.ErrorIs(t, err, apperrors.ErrRedemptionNotFound)
	})
}
