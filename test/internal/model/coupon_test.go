package model

import (
	"testing"

	"ticketing-core/internal/model"

	"github.com/stretchr/testify/assert"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestCouponDiscount(t *testing.T) {
	tests := []struct {
		name     string
		coupon   model.Coupon
		subtotal float64
		want     float64
	}{
		{
			name:     "percentage",
			coupon:   model.Coupon{DiscountType: model.DiscountTypePercentage, DiscountValue: 10},
			subtotal: 250,
			want:     25,
		},
		{
			name: "percentage clamped to max discount",
			coupon: model.Coupon{
				DiscountType:  model.DiscountTypePercentage,
				DiscountValue: 20,
				MaxDiscount:   floatPtr(50),
			},
			subtotal: 1000,
			want:     50,
		},
		{
			name:     "fixed",
			coupon:   model.Coupon{DiscountType: model.DiscountTypeFixed, DiscountValue: 30},
			subtotal: 100,
			want:     30,
		},
		{
			name:     "fixed never exceeds subtotal",
			coupon:   model.Coupon{DiscountType: model.DiscountTypeFixed, DiscountValue: 30},
			subtotal: 20,
			want:     20,
		},
		{
			name: "fixed clamped to lower max discount",
			coupon: model.Coupon{
				DiscountType:  model.DiscountTypeFixed,
				DiscountValue: 30,
				MaxDiscount:   floatPtr(25),
			},
			subtotal: 100,
			want:     25,
		},
		{
			name:     "percentage rounds to cents",
			coupon:   model.Coupon{DiscountType: model.DiscountTypePercentage, DiscountValue: 15},
			subtotal: 99.99,
			want:     15.00, // 14.9985 rounds half-up
		},
		{
			name:     "zero subtotal",
			coupon:   model.Coupon{DiscountType: model.DiscountTypePercentage, DiscountValue: 50},
			subtotal: 0,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.coupon.Discount(tt.subtotal))
		})
	}
}

func TestCouponExhausted(t *testing.T) {
	unlimited := model.Coupon{UsedCount: 1000}
	assert.False(t, unlimited.Exhausted())

	capped := model.Coupon{UsageLimit: intPtr(5), UsedCount: 4}
	assert.False(t, capped.Exhausted())

	capped.UsedCount = 5
	assert.True(t, capped.Exhausted())
}

func TestTicketStatusTransitions(t *testing.T) {
	assert.True(t, model.TicketStatusConfirmed.CanTransitionTo(model.TicketStatusUsed))
	assert.True(t, model.TicketStatusUsed.CanTransitionTo(model.TicketStatusConfirmed))

	// cancelled and transferred are terminal
	assert.False(t, model.TicketStatusCancelled.CanTransitionTo(model.TicketStatusUsed))
	assert.False(t, model.TicketStatusTransferred.CanTransitionTo(model.TicketStatusUsed))
	assert.False(t, model.TicketStatusReserved.CanTransitionTo(model.TicketStatusUsed))
}
