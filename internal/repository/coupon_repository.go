package repository

import (
	"context"
	"strings"
	"ticketing-core/internal/model"
	apperrors "ticketing-core/pkg/app_errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CouponRepository interface {
	Create(ctx context.Context, coupon *model.Coupon) (*model.Coupon, error)
	FindByCode(ctx context.Context, code string) (*model.Coupon, error)
	// Deactivate soft-deletes: a coupon that has been used keeps its history.
	Deactivate(ctx context.Context, id int) error
	CountUserRedemptions(ctx context.Context, couponID int, userID string) (int, error)

	// Transaction methods. The FOR UPDATE row lock serializes concurrent
	// redemptions of one coupon; the guarded increment is the final gate.
	FindByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error)
	CountRedemptions(ctx context.Context, tx pgx.Tx, couponID int, userID string) (int, error)
	InsertRedemption(ctx context.Context, tx pgx.Tx, redemption *model.CouponRedemption) error
	IncrementUsage(ctx context.Context, tx pgx.Tx, couponID int) error
	DeleteLatestRedemption(ctx context.Context, tx pgx.Tx, couponID int, userID string) error
	DecrementUsage(ctx context.Context, tx pgx.Tx, couponID int) error
}

type CouponRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewCouponRepository(pool *pgxpool.Pool) CouponRepository {
	return &CouponRepositoryImpl{
		pool: pool,
	}
}

const couponColumns = `
	id, code, name, discount_type, discount_value, min_purchase, max_discount,
	usage_limit, per_user_limit, event_id, starts_at, expires_at, is_active,
	used_count, created_at, updated_at
`

func scanCoupon(row pgx.Row, coupon *model.Coupon) error {
	return row.Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.Name,
		&coupon.DiscountType,
		&coupon.DiscountValue,
		&coupon.MinPurchase,
		&coupon.MaxDiscount,
		&coupon.UsageLimit,
		&coupon.PerUserLimit,
		&coupon.EventID,
		&coupon.StartsAt,
		&coupon.ExpiresAt,
		&coupon.IsActive,
		&coupon.UsedCount,
		&coupon.CreatedAt,
		&coupon.UpdatedAt,
	)
}

func (r *CouponRepositoryImpl) Create(ctx context.Context, coupon *model.Coupon) (*model.Coupon, error) {
	query := `
		INSERT INTO coupons (
			code, name, discount_type, discount_value, min_purchase,
			max_discount, usage_limit, per_user_limit, event_id,
			starts_at, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + couponColumns

	// codes are stored upper-case; lookups are case-insensitive
	err := scanCoupon(r.pool.QueryRow(ctx, query,
		strings.ToUpper(coupon.Code), coupon.Name, coupon.DiscountType,
		coupon.DiscountValue, coupon.MinPurchase, coupon.MaxDiscount,
		coupon.UsageLimit, coupon.PerUserLimit, coupon.EventID,
		coupon.StartsAt, coupon.ExpiresAt, coupon.IsActive,
	), coupon)

	if err != nil {
		return nil, err
	}

	return coupon, nil
}

func (r *CouponRepositoryImpl) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE code = UPPER($1)
	`

	var coupon model.Coupon
	err := scanCoupon(r.pool.QueryRow(ctx, query, code), &coupon)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrCouponNotFound
		}
		return nil, err
	}

	return &coupon, nil
}

func (r *CouponRepositoryImpl) FindByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE code = UPPER($1)
		FOR UPDATE
	`

	var coupon model.Coupon
	err := scanCoupon(tx.QueryRow(ctx, query, code), &coupon)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrCouponNotFound
		}
		return nil, err
	}

	return &coupon, nil
}

func (r *CouponRepositoryImpl) CountUserRedemptions(ctx context.Context, couponID int, userID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM coupon_redemptions
		WHERE coupon_id = $1 AND user_id = $2
	`

	var count int
	err := r.pool.QueryRow(ctx, query, couponID, userID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *CouponRepositoryImpl) CountRedemptions(ctx context.Context, tx pgx.Tx, couponID int, userID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM coupon_redemptions
		WHERE coupon_id = $1 AND user_id = $2
	`

	var count int
	err := tx.QueryRow(ctx, query, couponID, userID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *CouponRepositoryImpl) InsertRedemption(ctx context.Context, tx pgx.Tx, redemption *model.CouponRedemption) error {
	query := `
		INSERT INTO coupon_redemptions (coupon_id, user_id, order_ref, discount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, redeemed_at
	`

	return tx.QueryRow(ctx, query,
		redemption.CouponID, redemption.UserID, redemption.OrderRef, redemption.Discount,
	).Scan(&redemption.ID, &redemption.RedeemedAt)
}

// IncrementUsage 消耗一次使用額度，條件式遞增：額度已滿時不寫入
func (r *CouponRepositoryImpl) IncrementUsage(ctx context.Context, tx pgx.Tx, couponID int) error {
	query := `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = $2
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)
	`

	result, err := tx.Exec(ctx, query, couponID, time.Now().UTC())
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrStatusConflict
	}

	return nil
}

func (r *CouponRepositoryImpl) DeleteLatestRedemption(ctx context.Context, tx pgx.Tx, couponID int, userID string) error {
	query := `
		DELETE FROM coupon_redemptions
		WHERE id = (
			SELECT id FROM coupon_redemptions
			WHERE coupon_id = $1 AND user_id = $2
			ORDER BY redeemed_at DESC, id DESC
			LIMIT 1
		)
	`

	result, err := tx.Exec(ctx, query, couponID, userID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrRedemptionNotFound
	}

	return nil
}

func (r *CouponRepositoryImpl) DecrementUsage(ctx context.Context, tx pgx.Tx, couponID int) error {
	query := `
		UPDATE coupons
		SET used_count = used_count - 1, updated_at = $2
		WHERE id = $1 AND used_count > 0
	`

	result, err := tx.Exec(ctx, query, couponID, time.Now().UTC())
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrStatusConflict
	}

	return nil
}

func (r *CouponRepositoryImpl) Deactivate(ctx context.Context, id int) error {
	query := `
		UPDATE coupons
		SET is_active = false, updated_at = $2
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrCouponNotFound
	}

	return nil
}
