package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ticketing-core/internal/handler"
	"ticketing-core/internal/model"
	apperrors "ticketing-core/pkg/app_errors"
	mockservices "ticketing-core/test/internal/mocks/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupSessionTestRouter(mockService *mockservices.SessionServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	sessionHandler := handler.NewSessionHandler(mockService)
	sessionHandler.RegisterRoutes(router)

	return router
}

func TestGetStats(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := mockservices.NewSessionServiceMock()
		router := setupSessionTestRouter(mockService)

		sessionID := uuid.New()
		mockService.On("GetStats", mock.Anything, sessionID).
			Return(&model.SessionStats{
				SessionID:  sessionID.String(),
				Total:      300,
				CheckedIn:  120,
				Pending:    180,
				Percentage: 40,
			}, nil).Once()
		mockService.On("RecentCheckins", mock.Anything, sessionID).
			Return([]model.RecentCheckin{
				{TicketCode: "BOLT-ABC123", OperatorID: "gate-1", CheckedInAt: time.Now()},
			}, nil).Once()

		req := httptest.NewRequest("GET", "/api/v1/sessions/"+sessionID.String()+"/stats", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("DegradesWithoutRecentList", func(t *testing.T) {
		mockService := mockservices.NewSessionServiceMock()
		router := setupSessionTestRouter(mockService)

		sessionID := uuid.New()
		mockService.On("GetStats", mock.Anything, sessionID).
			Return(&model.SessionStats{SessionID: sessionID.String(), Total: 300, CheckedIn: 120}, nil).Once()
		mockService.On("RecentCheckins", mock.Anything, sessionID).
			Return(nil, errors.New("redis unavailable")).Once()

		req := httptest.NewRequest("GET", "/api/v1/sessions/"+sessionID.String()+"/stats", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		// counters still render when the recent list is unavailable
		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("SessionNotFound", func(t *testing.T) {
		mockService := mockservices.NewSessionServiceMock()
		router := setupSessionTestRouter(mockService)

		sessionID := uuid.New()
		mockService.On("GetStats", mock.Anything, sessionID).
			Return(nil, apperrors.ErrSessionNotFound).Once()

		req := httptest.NewRequest("GET", "/api/v1/sessions/"+sessionID.String()+"/stats", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidID", func(t *testing.T) {
		mockService := mockservices.NewSessionServiceMock()
		router := setupSessionTestRouter(mockService)

		req := httptest.NewRequest("GET", "/api/v1/sessions/invalid/stats", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "GetStats")
	})
}

func TestOpenGate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := mockservices.NewSessionServiceMock()
		router := setupSessionTestRouter(mockService)

		sessionID := uuid.New()
		mockService.On("OpenGate", mock.Anything, sessionID).Return(nil).Once()

		req := httptest.NewRequest("POST", "/api/v1/sessions/"+sessionID.String()+"/open-gate", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("SessionNotFound", func(t *testing.T) {
		mockService := mockservices.NewSessionServiceMock()
		router := setupSessionTestRouter(mockService)

		sessionID := uuid.New()
		mockService.On("OpenGate", mock.Anything, sessionID).
			Return(apperrors.ErrSessionNotFound).Once()

		req := httptest.NewRequest("POST", "/api/v1/sessions/"+sessionID.String()+"/open-gate", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockService.AssertExpectations(t)
	})
}
