package queue

import (
	"context"
	"time"
)

// CheckinEventKind 事件類型：入場或撤銷
type CheckinEventKind string

const (
	CheckinEventApply  CheckinEventKind = "checkin"
	CheckinEventRevert CheckinEventKind = "undo"
)

// CheckinEvent notifies the attendance projection of a committed transition.
// Delivery is at-least-once; the projection's apply/revert are idempotent, so
// redelivery can never double count.
type CheckinEvent struct {
	Kind        CheckinEventKind `json:"kind"`
	SessionID   string           `json:"session_id"`
	TicketCode  string           `json:"ticket_code"`
	HolderName  string           `json:"holder_name,omitempty"`
	OperatorID  string           `json:"operator_id"`
	CheckedInAt time.Time        `json:"checked_in_at"`
}

type Delivery struct {
	Data *CheckinEvent
	Ack  func()
	Nack func(requeue bool)
}

type CheckinEventQueue interface {
	// 發送入場事件到隊列
	PublishEvent(ctx context.Context, event *CheckinEvent) error
	// 訂閱入場事件隊列
	SubscribeEvents(ctx context.Context) (<-chan Delivery, error)
}

type CheckinEventQueueImpl struct {
	// in-memory channel standing in for a broker; the Redis Streams
	// implementation is the durable variant
	ch chan *CheckinEvent
}

func NewCheckinEventQueue(bufferSize int) CheckinEventQueue {
	return &CheckinEventQueueImpl{
		ch: make(chan *CheckinEvent, bufferSize),
	}
}

func (q *CheckinEventQueueImpl) PublishEvent(ctx context.Context, event *CheckinEvent) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *CheckinEventQueueImpl) SubscribeEvents(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.ch:
				if !ok {
					return
				}

				out <- Delivery{
					Data: event,
					Ack:  func() { /* nothing to do for the memory variant */ },
					Nack: func(requeue bool) {
						if requeue {
							q.ch <- event
						}
					},
				}
			}
		}
	}()

	return out, nil
}
