package handler

import (
	"net/http"
	"ticketing-core/internal/model"
	"ticketing-core/internal/service"
	"ticketing-core/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CheckinHandler struct {
	service service.CheckinService
}

func NewCheckinHandler(service service.CheckinService) *CheckinHandler {
	return &CheckinHandler{service: service}
}

func (h *CheckinHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("checkin/:code", h.CheckIn)
		router.GET("checkin/:code", h.Preview)
		router.DELETE("checkin/:code", h.UndoCheckIn)
	}
}

func (h *CheckinHandler) CheckIn(c *gin.Context) {
	code := c.Param("code")

	var req model.CheckinRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	result, err := h.service.CheckIn(c, code, req.SessionID, req.OperatorID)
	if err != nil {
		h.handleError(c, err, "CheckIn")
		return
	}

	c.JSON(checkinStatusCode(result.Outcome), result)
}

func (h *CheckinHandler) Preview(c *gin.Context) {
	code := c.Param("code")
	sessionID := c.Query("session_id")

	result, err := h.service.Preview(c, code, sessionID)
	if err != nil {
		h.handleError(c, err, "Preview")
		return
	}

	// preview reports admissibility without mutating; 200 unless unknown code
	status := http.StatusOK
	if result.Outcome == model.OutcomeNotFound {
		status = http.StatusNotFound
	}
	c.JSON(status, result)
}

func (h *CheckinHandler) UndoCheckIn(c *gin.Context) {
	code := c.Param("code")
	operatorID := c.Query("operator_id")
	if operatorID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "operator_id is required",
		})
		return
	}

	result, err := h.service.UndoCheckIn(c, code, operatorID)
	if err != nil {
		h.handleError(c, err, "UndoCheckIn")
		return
	}

	switch result.Outcome {
	case model.OutcomeReverted:
		c.JSON(http.StatusOK, result)
	case model.OutcomeNotFound:
		c.JSON(http.StatusNotFound, result)
	default:
		c.JSON(http.StatusBadRequest, result)
	}
}

// handleError only sees infrastructure failures; rejection outcomes travel
// inside results. Check-in is idempotent per code, so retrying is safe.
func (h *CheckinHandler) handleError(c *gin.Context, err error, operation string) {
	logger.WithComponent("handler").Error("storage failure",
		zap.String("operation", operation), zap.Error(err))
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": "Temporarily unavailable, retry with the same code",
	})
}

func checkinStatusCode(outcome model.CheckinOutcome) int {
	switch outcome {
	case model.OutcomeAdmitted:
		return http.StatusOK
	case model.OutcomeNotFound:
		return http.StatusNotFound
	case model.OutcomeAlreadyUsed:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
