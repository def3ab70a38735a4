// Package validation holds the pure admission decision logic. Evaluate is
// the single source of truth for "is this ticket admissible right now" given
// a snapshot; it performs no I/O and is called both inside the check-in
// coordinator's conditional write cycle and by the read-only preview path.
package validation

import (
	"time"

	"ticketing-core/internal/model"
)

type DecisionKind string

const (
	DecisionAdmit         DecisionKind = "admit"
	DecisionNotFound      DecisionKind = "not_found"
	DecisionWrongSession  DecisionKind = "wrong_session"
	DecisionInvalidStatus DecisionKind = "invalid_status"
	DecisionAlreadyUsed   DecisionKind = "already_used"
)

// Decision is the engine verdict for one snapshot. AlreadyUsed carries the
// original check-in metadata so the gate UI can show who scanned it and when.
type Decision struct {
	Kind        DecisionKind
	Status      model.TicketStatus
	CheckedInAt *time.Time
	CheckedInBy *string
}

func (d Decision) Admissible() bool {
	return d.Kind == DecisionAdmit
}

// Evaluate maps a ticket snapshot and an optional session filter to a
// Decision. ticket may be nil (code not found). Safe to call any number of
// times; never mutates.
func Evaluate(ticket *model.Ticket, requestedSessionID string) Decision {
	if ticket == nil {
		return Decision{Kind: DecisionNotFound}
	}

	if requestedSessionID != "" && ticket.Session != nil &&
		ticket.Session.SessionID.String() != requestedSessionID {
		return Decision{Kind: DecisionWrongSession, Status: ticket.Status}
	}

	switch ticket.Status {
	case model.TicketStatusUsed:
		return Decision{
			Kind:        DecisionAlreadyUsed,
			Status:      ticket.Status,
			CheckedInAt: ticket.CheckedInAt,
			CheckedInBy: ticket.CheckedInBy,
		}
	case model.TicketStatusConfirmed:
		return Decision{Kind: DecisionAdmit, Status: ticket.Status}
	default:
		// reserved, cancelled, transferred
		return Decision{Kind: DecisionInvalidStatus, Status: ticket.Status}
	}
}
