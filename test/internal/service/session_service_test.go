package service

import (
	"context"
	"testing"
	"time"

	"ticketing-core/internal/cache"
	"ticketing-core/internal/model"
	"ticketing-core/internal/repository"
	"ticketing-core/internal/service"
	apperrors "ticketing-core/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionService() service.SessionService {
	return service.NewSessionService(
		repository.NewSessionRepository(testDB),
		repository.NewTicketRepository(testDB),
		cache.NewSessionAttendanceProjection(testRdb),
	)
}

func TestSessionStats(t *testing.T) {
	ctx := context.Background()

	t.Run("ColdProjectionRecomputes", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		sessionDBID, sessionID := createTestSession(t, time.Now().Add(time.Hour))
		createTestTicket(t, sessionDBID, "BOLT-S1T001", model.TicketStatusConfirmed)
		createTestTicket(t, sessionDBID, "BOLT-S1T002", model.TicketStatusUsed)
		createTestTicket(t, sessionDBID, "BOLT-S1T003", model.TicketStatusConfirmed)
		// cancelled tickets never count toward total
		createTestTicket(t, sessionDBID, "BOLT-S1T004", model.TicketStatusCancelled)

		svc := newSessionService()

		stats, err := svc.GetStats(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 1, stats.CheckedIn)
		assert.Equal(t, 2, stats.Pending)
		assert.InDelta(t, 33.33, stats.Percentage, 0.01)
	})

	t.Run("WarmProjectionServesReads", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		sessionDBID, sessionID := createTestSession(t, time.Now().Add(time.Hour))
		createTestTicket(t, sessionDBID, "BOLT-S2T001", model.TicketStatusUsed)
		createTestTicket(t, sessionDBID, "BOLT-S2T002", model.TicketStatusUsed)
		createTestTicket(t, sessionDBID, "BOLT-S2T003", model.TicketStatusConfirmed)

		svc := newSessionService()

		require.NoError(t, svc.OpenGate(ctx, sessionID))

		stats, err := svc.GetStats(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 2, stats.CheckedIn)
		assert.Equal(t, 1, stats.Pending)
	})

	t.Run("EmptySession", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		_, sessionID := createTestSession(t, time.Now().Add(time.Hour))

		svc := newSessionService()

		stats, err := svc.GetStats(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Total)
		assert.Equal(t, 0, stats.CheckedIn)
		assert.Equal(t, 0.0, stats.Percentage)
	})

	t.Run("SessionNotFound", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		svc := newSessionService()

		_, err := svc.GetStats(ctx, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})
}

func TestRecentCheckinsService(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyWithoutTraffic", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		_, sessionID := createTestSession(t, time.Now().Add(time.Hour))

		svc := newSessionService()

		recent, err := svc.RecentCheckins(ctx, sessionID)
		require.NoError(t, err)
		assert.Empty(t, recent)
	})

	t.Run("SessionNotFound", func(t *testing.T) {
		defer setupTestWithTruncate(t)()

		svc := newSessionService()

		_, err := svc.RecentCheckins(ctx, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})
}
