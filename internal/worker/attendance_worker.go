package worker

import (
	"context"
	"ticketing-core/internal/cache"
	"ticketing-core/internal/model"
	"ticketing-core/internal/queue"
	"ticketing-core/pkg/logger"

	"go.uber.org/zap"
)

// AttendanceWorker drains committed check-in events into the attendance
// projection. Events arrive at least once; the projection's set semantics
// make the second delivery a no-op.
type AttendanceWorker interface {
	Start(ctx context.Context) error
}

type AttendanceWorkerImpl struct {
	projection cache.SessionAttendanceProjection
	queue      queue.CheckinEventQueue
}

func NewAttendanceWorker(projection cache.SessionAttendanceProjection, queue queue.CheckinEventQueue) AttendanceWorker {
	return &AttendanceWorkerImpl{
		projection: projection,
		queue:      queue,
	}
}

func (w *AttendanceWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.SubscribeEvents(ctx)
	if err != nil {
		return err
	}

	go func() {
		log := logger.WithComponent("worker")
		for msg := range msgs {
			if err := w.apply(ctx, msg.Data); err != nil {
				// Redis 暫時不可用時重試；投影套用是冪等的，重送安全
				log.Warn("apply checkin event failed, will retry",
					zap.String("session_id", msg.Data.SessionID),
					zap.String("ticket_code", msg.Data.TicketCode),
					zap.Error(err))
				msg.Nack(true)
			} else {
				msg.Ack()
			}
		}
	}()
	return nil
}

func (w *AttendanceWorkerImpl) apply(ctx context.Context, event *queue.CheckinEvent) error {
	switch event.Kind {
	case queue.CheckinEventRevert:
		_, err := w.projection.Revert(ctx, event.SessionID, event.TicketCode)
		return err
	default:
		first, err := w.projection.Apply(ctx, event.SessionID, event.TicketCode)
		if err != nil {
			return err
		}
		// 只有首次套用才記入最近入場清單，重送不重複記錄
		if first {
			return w.projection.RecordRecent(ctx, event.SessionID, model.RecentCheckin{
				TicketCode:  event.TicketCode,
				HolderName:  event.HolderName,
				OperatorID:  event.OperatorID,
				CheckedInAt: event.CheckedInAt,
			})
		}
		return nil
	}
}
