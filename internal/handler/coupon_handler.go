package handler

import (
	"errors"
	"net/http"
	"ticketing-core/internal/model"
	"ticketing-core/internal/service"
	apperrors "ticketing-core/pkg/app_errors"
	"ticketing-core/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CouponHandler struct {
	service service.CouponService
}

func NewCouponHandler(service service.CouponService) *CouponHandler {
	return &CouponHandler{service: service}
}

func (h *CouponHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("coupons/redeem", h.Redeem)
		router.POST("coupons/validate", h.Validate)
		router.POST("coupons/release", h.Release)
	}
}

func (h *CouponHandler) Redeem(c *gin.Context) {
	var req model.RedeemRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	result, err := h.service.Redeem(c, req)
	if err != nil {
		h.handleError(c, err, "Redeem")
		return
	}

	c.JSON(redemptionStatusCode(result.Outcome), result)
}

// Validate 試算折扣，不保留額度；結帳流程顯示金額用
func (h *CouponHandler) Validate(c *gin.Context) {
	var req model.RedeemRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	result, err := h.service.Validate(c, req.Code, req.UserID, model.OrderContext{
		Subtotal: req.Subtotal,
		EventID:  req.EventID,
		OrderRef: req.OrderRef,
	})
	if err != nil {
		h.handleError(c, err, "Validate")
		return
	}

	c.JSON(redemptionStatusCode(result.Outcome), result)
}

func (h *CouponHandler) Release(c *gin.Context) {
	var req model.ReleaseRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	if err := h.service.Release(c, req.Code, req.UserID); err != nil {
		h.handleError(c, err, "Release")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *CouponHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrCouponNotFound):
		log.Warn("Coupon not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Coupon not found",
		})
	case errors.Is(err, apperrors.ErrRedemptionNotFound):
		log.Warn("Redemption not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No redemption to release",
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Temporarily unavailable, retry with the same code",
		})
	}
}

func redemptionStatusCode(outcome model.RedemptionOutcome) int {
	switch outcome {
	case model.RedemptionOK:
		return http.StatusOK
	case model.RedemptionNotFound:
		return http.StatusNotFound
	case model.RedemptionExhausted, model.RedemptionPerUserLimitReached:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
