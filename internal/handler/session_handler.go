package handler

import (
	"errors"
	"net/http"
	"ticketing-core/internal/service"
	apperrors "ticketing-core/pkg/app_errors"
	"ticketing-core/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SessionHandler struct {
	service service.SessionService
}

func NewSessionHandler(service service.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

func (h *SessionHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("sessions/:id/stats", h.GetStats)
		router.POST("sessions/:id/open-gate", h.OpenGate)
	}
}

// GetStats serves the polling dashboard: counters plus the latest scans.
// Values may lag committed check-ins by the projection delay.
func (h *SessionHandler) GetStats(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session id"})
		return
	}

	stats, err := h.service.GetStats(c, sessionID)
	if err != nil {
		h.handleError(c, err, "GetStats")
		return
	}

	recent, err := h.service.RecentCheckins(c, sessionID)
	if err != nil {
		// counters are still useful without the recent list
		logger.WithComponent("handler").Warn("recent checkins unavailable",
			zap.String("session_id", sessionID.String()), zap.Error(err))
		recent = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":           stats,
		"recent_checkins": recent,
	})
}

func (h *SessionHandler) OpenGate(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session id"})
		return
	}

	if err := h.service.OpenGate(c, sessionID); err != nil {
		h.handleError(c, err, "OpenGate")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrSessionNotFound):
		log.Warn("Session not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Session not found",
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Temporarily unavailable",
		})
	}
}
