package service

import (
	"context"
	"errors"
	"fmt"
	"ticketing-core/internal/cache"
	"ticketing-core/internal/model"
	"ticketing-core/internal/repository"
	"ticketing-core/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionService serves the attendance numbers the gate dashboard polls.
// Reads go to the Redis projection; a cold or unreachable projection falls
// back to a direct recompute over the ticket store, which is also used to
// rebuild the projection. Staleness is tolerated, double counting is not.
type SessionService interface {
	Create(ctx context.Context, session *model.Session) (*model.Session, error)
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.Session, error)
	GetStats(ctx context.Context, sessionID uuid.UUID) (*model.SessionStats, error)
	RecentCheckins(ctx context.Context, sessionID uuid.UUID) ([]model.RecentCheckin, error)
	// OpenGate 開放入場：從票券儲存重建該場次的出席投影
	OpenGate(ctx context.Context, sessionID uuid.UUID) error
}

type SessionServiceImpl struct {
	repo       repository.SessionRepository
	ticketRepo repository.TicketRepository
	projection cache.SessionAttendanceProjection
}

func NewSessionService(
	repo repository.SessionRepository,
	ticketRepo repository.TicketRepository,
	projection cache.SessionAttendanceProjection,
) SessionService {
	return &SessionServiceImpl{
		repo:       repo,
		ticketRepo: ticketRepo,
		projection: projection,
	}
}

func (s *SessionServiceImpl) Create(ctx context.Context, session *model.Session) (*model.Session, error) {
	if session.SessionID == uuid.Nil {
		session.SessionID = uuid.New()
	}
	return s.repo.Create(ctx, session)
}

func (s *SessionServiceImpl) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.Session, error) {
	return s.repo.FindBySessionID(ctx, sessionID)
}

func (s *SessionServiceImpl) GetStats(ctx context.Context, sessionID uuid.UUID) (*model.SessionStats, error) {
	session, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sid := sessionID.String()

	total, err := s.projection.CachedTotal(ctx, sid)
	if err != nil {
		if !errors.Is(err, cache.ErrNotWarmed) {
			logger.WithComponent("service").Warn("attendance projection unreachable, recomputing",
				zap.String("session_id", sid), zap.Error(err))
		}
		return s.recompute(ctx, session)
	}

	checkedIn, err := s.projection.CheckedIn(ctx, sid)
	if err != nil {
		return s.recompute(ctx, session)
	}

	// the projection may lag invalidations; never report beyond total
	if checkedIn > total {
		checkedIn = total
	}

	return buildStats(sid, total, checkedIn), nil
}

// recompute derives stats straight from the authoritative status column and
// repopulates the projection on a best-effort basis.
func (s *SessionServiceImpl) recompute(ctx context.Context, session *model.Session) (*model.SessionStats, error) {
	total, err := s.ticketRepo.CountBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("count session tickets: %w", err)
	}

	codes, err := s.ticketRepo.ListUsedCodesBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list used tickets: %w", err)
	}

	sid := session.SessionID.String()
	if err := s.projection.Rebuild(ctx, sid, codes, total); err != nil {
		logger.WithComponent("service").Warn("attendance projection rebuild failed",
			zap.String("session_id", sid), zap.Error(err))
	}

	return buildStats(sid, total, len(codes)), nil
}

func (s *SessionServiceImpl) RecentCheckins(ctx context.Context, sessionID uuid.UUID) ([]model.RecentCheckin, error) {
	if _, err := s.repo.FindBySessionID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.projection.RecentCheckins(ctx, sessionID.String())
}

func (s *SessionServiceImpl) OpenGate(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}

	total, err := s.ticketRepo.CountBySession(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("count session tickets: %w", err)
	}

	codes, err := s.ticketRepo.ListUsedCodesBySession(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("list used tickets: %w", err)
	}

	return s.projection.Rebuild(ctx, sessionID.String(), codes, total)
}

func buildStats(sessionID string, total, checkedIn int) *model.SessionStats {
	pending := total - checkedIn
	if pending < 0 {
		pending = 0
	}

	percentage := 0.0
	if total > 0 {
		percentage = float64(checkedIn) / float64(total) * 100
	}

	return &model.SessionStats{
		SessionID:  sessionID,
		Total:      total,
		CheckedIn:  checkedIn,
		Pending:    pending,
		Percentage: percentage,
	}
}
