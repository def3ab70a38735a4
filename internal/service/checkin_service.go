package service

import (
	"context"
	"errors"
	"fmt"
	"ticketing-core/config"
	"ticketing-core/internal/model"
	"ticketing-core/internal/monitoring"
	"ticketing-core/internal/queue"
	"ticketing-core/internal/repository"
	"ticketing-core/internal/validation"
	apperrors "ticketing-core/pkg/app_errors"
	"ticketing-core/pkg/logger"
	"time"

	"go.uber.org/zap"
)

// CheckinService is the only component that moves tickets to and from used.
// All serialization is per ticket code, through the repository's conditional
// writes; no lock is held across codes.
type CheckinService interface {
	// 入場：同一票碼任意數量的並發請求，至多一個成功
	CheckIn(ctx context.Context, code string, requestedSessionID string, operatorID string) (*model.CheckinResult, error)
	// 撤銷入場（營運修正用，非重複入場機制）
	UndoCheckIn(ctx context.Context, code string, operatorID string) (*model.UndoResult, error)
	// 查驗但不入場
	Preview(ctx context.Context, code string, requestedSessionID string) (*model.CheckinResult, error)
}

type CheckinServiceImpl struct {
	repo       repository.TicketRepository
	eventQueue queue.CheckinEventQueue
	cfg        config.CheckinConfig
}

func NewCheckinService(
	repo repository.TicketRepository,
	eventQueue queue.CheckinEventQueue,
	cfg config.CheckinConfig,
) CheckinService {
	return &CheckinServiceImpl{
		repo:       repo,
		eventQueue: eventQueue,
		cfg:        cfg,
	}
}

func (s *CheckinServiceImpl) CheckIn(ctx context.Context, code string, requestedSessionID string, operatorID string) (*model.CheckinResult, error) {
	start := time.Now()
	result, err := s.checkIn(ctx, code, requestedSessionID, operatorID)
	if err != nil {
		return nil, err
	}
	monitoring.ObserveCheckin(string(result.Outcome), time.Since(start))
	return result, nil
}

func (s *CheckinServiceImpl) checkIn(ctx context.Context, code string, requestedSessionID string, operatorID string) (*model.CheckinResult, error) {
	// 1. read snapshot
	ticket, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrTicketNotFound) {
			return &model.CheckinResult{Outcome: model.OutcomeNotFound, TicketCode: code}, nil
		}
		return nil, fmt.Errorf("read ticket %q: %w", code, err)
	}

	// 2. evaluate against the snapshot
	decision := validation.Evaluate(ticket, requestedSessionID)
	if !decision.Admissible() {
		return resultFromDecision(code, ticket, decision), nil
	}

	// 3. gate window (operational policy, not part of the engine)
	if result := s.checkGateWindow(ticket); result != nil {
		return result, nil
	}

	// 4. conditional commit; zero rows means another request won the race
	committed, err := s.repo.MarkCheckedIn(ctx, code, operatorID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, apperrors.ErrStatusConflict) {
			return s.reclassify(ctx, code, requestedSessionID)
		}
		return nil, fmt.Errorf("commit check-in %q: %w", code, err)
	}
	committed.Session = ticket.Session

	// 5. notify the attendance projection. At-least-once and idempotent on
	// the consumer side; a publish failure is logged, not surfaced, because
	// the projection rebuilds from the ticket store.
	s.publish(ticket, &queue.CheckinEvent{
		Kind:        queue.CheckinEventApply,
		SessionID:   ticket.Session.SessionID.String(),
		TicketCode:  committed.TicketCode,
		HolderName:  stringValue(committed.HolderName),
		OperatorID:  operatorID,
		CheckedInAt: *committed.CheckedInAt,
	})

	return &model.CheckinResult{
		Outcome:     model.OutcomeAdmitted,
		TicketCode:  committed.TicketCode,
		Status:      committed.Status,
		HolderName:  committed.HolderName,
		SeatLabel:   committed.SeatLabel,
		ZoneName:    committed.ZoneName,
		TierName:    committed.TierName,
		CheckedInAt: committed.CheckedInAt,
		CheckedInBy: committed.CheckedInBy,
	}, nil
}

// reclassify re-reads after a lost conditional write and reports the state
// that beat us, instead of retrying blindly.
func (s *CheckinServiceImpl) reclassify(ctx context.Context, code string, requestedSessionID string) (*model.CheckinResult, error) {
	ticket, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrTicketNotFound) {
			return &model.CheckinResult{Outcome: model.OutcomeNotFound, TicketCode: code}, nil
		}
		return nil, fmt.Errorf("re-read ticket %q: %w", code, err)
	}
	return resultFromDecision(code, ticket, validation.Evaluate(ticket, requestedSessionID)), nil
}

func (s *CheckinServiceImpl) checkGateWindow(ticket *model.Ticket) *model.CheckinResult {
	if ticket.Session == nil {
		return nil
	}
	now := time.Now().UTC()
	startsAt := ticket.Session.StartsAt

	if s.cfg.OpensBefore > 0 && now.Before(startsAt.Add(-s.cfg.OpensBefore)) {
		return &model.CheckinResult{
			Outcome:         model.OutcomeTooEarly,
			TicketCode:      ticket.TicketCode,
			Status:          ticket.Status,
			SessionStartsAt: &startsAt,
		}
	}
	if s.cfg.ClosesAfter > 0 && now.After(startsAt.Add(s.cfg.ClosesAfter)) {
		return &model.CheckinResult{
			Outcome:         model.OutcomeClosed,
			TicketCode:      ticket.TicketCode,
			Status:          ticket.Status,
			SessionStartsAt: &startsAt,
		}
	}
	return nil
}

func (s *CheckinServiceImpl) UndoCheckIn(ctx context.Context, code string, operatorID string) (*model.UndoResult, error) {
	result, err := s.undoCheckIn(ctx, code, operatorID)
	if err != nil {
		return nil, err
	}
	monitoring.ObserveUndo(string(result.Outcome))
	return result, nil
}

func (s *CheckinServiceImpl) undoCheckIn(ctx context.Context, code string, operatorID string) (*model.UndoResult, error) {
	reverted, err := s.repo.RevertCheckin(ctx, code)
	if err == nil {
		ticket, findErr := s.repo.FindByCode(ctx, code)
		if findErr == nil && ticket.Session != nil {
			s.publish(ticket, &queue.CheckinEvent{
				Kind:       queue.CheckinEventRevert,
				SessionID:  ticket.Session.SessionID.String(),
				TicketCode: reverted.TicketCode,
				OperatorID: operatorID,
			})
		}
		return &model.UndoResult{
			Outcome:    model.OutcomeReverted,
			TicketCode: reverted.TicketCode,
			Status:     reverted.Status,
		}, nil
	}

	if !errors.Is(err, apperrors.ErrStatusConflict) {
		return nil, fmt.Errorf("revert check-in %q: %w", code, err)
	}

	// conditional write missed: either no such ticket, or it was not used
	ticket, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrTicketNotFound) {
			return &model.UndoResult{Outcome: model.OutcomeNotFound, TicketCode: code}, nil
		}
		return nil, fmt.Errorf("re-read ticket %q: %w", code, err)
	}

	return &model.UndoResult{
		Outcome:    model.OutcomeNotUsed,
		TicketCode: code,
		Status:     ticket.Status,
	}, nil
}

func (s *CheckinServiceImpl) Preview(ctx context.Context, code string, requestedSessionID string) (*model.CheckinResult, error) {
	ticket, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrTicketNotFound) {
			return &model.CheckinResult{Outcome: model.OutcomeNotFound, TicketCode: code}, nil
		}
		return nil, fmt.Errorf("read ticket %q: %w", code, err)
	}

	decision := validation.Evaluate(ticket, requestedSessionID)
	if decision.Admissible() {
		if result := s.checkGateWindow(ticket); result != nil {
			return result, nil
		}
		return &model.CheckinResult{
			Outcome:    model.OutcomeAdmitted,
			TicketCode: ticket.TicketCode,
			Status:     ticket.Status,
			HolderName: ticket.HolderName,
			SeatLabel:  ticket.SeatLabel,
			ZoneName:   ticket.ZoneName,
			TierName:   ticket.TierName,
		}, nil
	}
	return resultFromDecision(code, ticket, decision), nil
}

// publish uses context.Background: once the conditional write committed the
// admission stands, even if the caller has gone away.
func (s *CheckinServiceImpl) publish(ticket *model.Ticket, event *queue.CheckinEvent) {
	if err := s.eventQueue.PublishEvent(context.Background(), event); err != nil {
		logger.WithComponent("service").Warn("publish checkin event failed",
			zap.String("ticket_code", ticket.TicketCode),
			zap.String("session_id", event.SessionID),
			zap.Error(err))
	}
}

func resultFromDecision(code string, ticket *model.Ticket, decision validation.Decision) *model.CheckinResult {
	result := &model.CheckinResult{
		TicketCode: code,
		Status:     decision.Status,
	}

	switch decision.Kind {
	case validation.DecisionNotFound:
		result.Outcome = model.OutcomeNotFound
	case validation.DecisionWrongSession:
		result.Outcome = model.OutcomeWrongSession
	case validation.DecisionInvalidStatus:
		result.Outcome = model.OutcomeInvalidStatus
	case validation.DecisionAlreadyUsed:
		result.Outcome = model.OutcomeAlreadyUsed
		result.CheckedInAt = decision.CheckedInAt
		result.CheckedInBy = decision.CheckedInBy
		result.HolderName = ticket.HolderName
	case validation.DecisionAdmit:
		result.Outcome = model.OutcomeAdmitted
	}

	return result
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
