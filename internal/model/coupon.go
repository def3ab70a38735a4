package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType 折扣類型
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

func (t DiscountType) IsValid() bool {
	switch t {
	case DiscountTypePercentage, DiscountTypeFixed:
		return true
	}
	return false
}

// Coupon 折扣券模型，code 以大寫儲存並做不分大小寫比對
type Coupon struct {
	ID            int          `json:"id" db:"id"`
	Code          string       `json:"code" db:"code"`
	Name          string       `json:"name" db:"name"`
	DiscountType  DiscountType `json:"discount_type" db:"discount_type"`
	DiscountValue float64      `json:"discount_value" db:"discount_value"`
	MinPurchase   *float64     `json:"min_purchase,omitempty" db:"min_purchase"`
	MaxDiscount   *float64     `json:"max_discount,omitempty" db:"max_discount"`
	UsageLimit    *int         `json:"usage_limit,omitempty" db:"usage_limit"`
	PerUserLimit  int          `json:"per_user_limit" db:"per_user_limit"`
	EventID       *uuid.UUID   `json:"event_id,omitempty" db:"event_id"`
	StartsAt      *time.Time   `json:"starts_at,omitempty" db:"starts_at"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty" db:"expires_at"`
	IsActive      bool         `json:"is_active" db:"is_active"`
	UsedCount     int          `json:"used_count" db:"used_count"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

// Exhausted 檢查全域使用上限是否已滿
func (c *Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit
}

// Discount computes the discount amount for a subtotal. Pure; the reservation
// transaction is not required. Money math runs on decimals so percentage
// discounts never drift, and the result never exceeds the subtotal.
func (c *Coupon) Discount(subtotal float64) float64 {
	sub := decimal.NewFromFloat(subtotal)

	var discount decimal.Decimal
	switch c.DiscountType {
	case DiscountTypePercentage:
		discount = sub.Mul(decimal.NewFromFloat(c.DiscountValue)).Div(decimal.NewFromInt(100))
	case DiscountTypeFixed:
		discount = decimal.NewFromFloat(c.DiscountValue)
	default:
		return 0
	}

	if c.MaxDiscount != nil {
		if max := decimal.NewFromFloat(*c.MaxDiscount); discount.GreaterThan(max) {
			discount = max
		}
	}
	if discount.GreaterThan(sub) {
		discount = sub
	}

	f, _ := discount.Round(2).Float64()
	return f
}

// CouponRedemption 折扣券兌換紀錄（per-user redemption set）
type CouponRedemption struct {
	ID         int       `json:"id" db:"id"`
	CouponID   int       `json:"coupon_id" db:"coupon_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	OrderRef   string    `json:"order_ref" db:"order_ref"`
	Discount   float64   `json:"discount" db:"discount"`
	RedeemedAt time.Time `json:"redeemed_at" db:"redeemed_at"`
}

// RedemptionOutcome enumerates the coupon rejection taxonomy. First failing
// check wins; a rejection never partially applies a discount.
type RedemptionOutcome string

const (
	RedemptionOK                  RedemptionOutcome = "ok"
	RedemptionNotFound            RedemptionOutcome = "not_found"
	RedemptionNotStarted          RedemptionOutcome = "not_started"
	RedemptionExpired             RedemptionOutcome = "expired"
	RedemptionEventMismatch       RedemptionOutcome = "event_mismatch"
	RedemptionBelowMinimum        RedemptionOutcome = "below_minimum"
	RedemptionExhausted           RedemptionOutcome = "exhausted"
	RedemptionPerUserLimitReached RedemptionOutcome = "per_user_limit_reached"
)

// OrderContext carries what the checkout subsystem knows at price time.
type OrderContext struct {
	Subtotal float64    `json:"subtotal"`
	EventID  *uuid.UUID `json:"event_id,omitempty"`
	OrderRef string     `json:"order_ref"`
}

// RedeemRequest 兌換請求
type RedeemRequest struct {
	Code     string     `json:"code" binding:"required"`
	UserID   string     `json:"user_id" binding:"required"`
	Subtotal float64    `json:"subtotal" binding:"required"`
	EventID  *uuid.UUID `json:"event_id,omitempty"`
	OrderRef string     `json:"order_ref"`
}

// ReleaseRequest 釋放兌換請求（訂單放棄時的補償操作）
type ReleaseRequest struct {
	Code   string `json:"code" binding:"required"`
	UserID string `json:"user_id" binding:"required"`
}

// RedemptionResult 兌換結果
type RedemptionResult struct {
	Outcome  RedemptionOutcome `json:"outcome"`
	Code     string            `json:"code"`
	Discount float64           `json:"discount,omitempty"`
	NewTotal float64           `json:"new_total,omitempty"`
	// populated for rejections that have a displayable bound
	MinPurchase *float64   `json:"min_purchase,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Redeemed 檢查是否兌換成功
func (r *RedemptionResult) Redeemed() bool {
	return r.Outcome == RedemptionOK
}
