package model

import "time"

// TicketStatus 票券狀態類型
type TicketStatus string

const (
	TicketStatusReserved    TicketStatus = "reserved"
	TicketStatusConfirmed   TicketStatus = "confirmed"
	TicketStatusUsed        TicketStatus = "used"
	TicketStatusCancelled   TicketStatus = "cancelled"
	TicketStatusTransferred TicketStatus = "transferred"
)

// IsValid 驗證狀態是否有效
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusReserved, TicketStatusConfirmed, TicketStatusUsed,
		TicketStatusCancelled, TicketStatusTransferred:
		return true
	}
	return false
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
func (s TicketStatus) CanTransitionTo(target TicketStatus) bool {
	transitions := map[TicketStatus][]TicketStatus{
		TicketStatusReserved:    {TicketStatusConfirmed, TicketStatusCancelled},
		TicketStatusConfirmed:   {TicketStatusUsed, TicketStatusCancelled, TicketStatusTransferred},
		TicketStatusUsed:        {TicketStatusConfirmed}, // undo check-in only
		TicketStatusCancelled:   {},
		TicketStatusTransferred: {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// Ticket 票券模型
// checked_in_at 與 checked_in_by 僅在 status=used 時非空，由 repository 的
// 條件式 UPDATE 一次寫入/清除，保持不變量。
type Ticket struct {
	ID          int          `json:"id" db:"id"`
	TicketCode  string       `json:"ticket_code" db:"ticket_code"`
	SessionID   int          `json:"session_id" db:"session_id"`
	OrderRef    string       `json:"order_ref" db:"order_ref"`
	HolderName  *string      `json:"holder_name,omitempty" db:"holder_name"`
	SeatLabel   *string      `json:"seat_label,omitempty" db:"seat_label"`
	ZoneName    *string      `json:"zone_name,omitempty" db:"zone_name"`
	TierName    *string      `json:"tier_name,omitempty" db:"tier_name"`
	Price       float64      `json:"price" db:"price"`
	Status      TicketStatus `json:"status" db:"status"`
	CheckedInAt *time.Time   `json:"checked_in_at,omitempty" db:"checked_in_at"`
	CheckedInBy *string      `json:"checked_in_by,omitempty" db:"checked_in_by"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`

	Session *Session `json:"session,omitempty" db:"-"`
}

// IsAdmissible 檢查票券目前是否可入場
func (t *Ticket) IsAdmissible() bool {
	return t.Status == TicketStatusConfirmed
}

// CheckinOutcome classifies the result of a check-in or undo attempt.
// Rejections are results, not errors: only storage failures travel as error.
type CheckinOutcome string

const (
	OutcomeAdmitted      CheckinOutcome = "admitted"
	OutcomeNotFound      CheckinOutcome = "not_found"
	OutcomeWrongSession  CheckinOutcome = "wrong_session"
	OutcomeInvalidStatus CheckinOutcome = "invalid_status"
	OutcomeAlreadyUsed   CheckinOutcome = "already_used"
	// gate window policy, enforced by the coordinator rim (not the engine)
	OutcomeTooEarly CheckinOutcome = "too_early"
	OutcomeClosed   CheckinOutcome = "closed"
	// undo
	OutcomeReverted CheckinOutcome = "reverted"
	OutcomeNotUsed  CheckinOutcome = "not_used"
)

// CheckinRequest 入場請求
type CheckinRequest struct {
	SessionID  string `json:"session_id"`
	OperatorID string `json:"operator_id" binding:"required"`
}

// CheckinResult 入場結果
type CheckinResult struct {
	Outcome     CheckinOutcome `json:"outcome"`
	TicketCode  string         `json:"ticket_code"`
	Status      TicketStatus   `json:"status,omitempty"`
	HolderName  *string        `json:"holder_name,omitempty"`
	SeatLabel   *string        `json:"seat_label,omitempty"`
	ZoneName    *string        `json:"zone_name,omitempty"`
	TierName    *string        `json:"tier_name,omitempty"`
	CheckedInAt *time.Time     `json:"checked_in_at,omitempty"`
	CheckedInBy *string        `json:"checked_in_by,omitempty"`
	// session start, populated for gate-window rejections
	SessionStartsAt *time.Time `json:"session_starts_at,omitempty"`
}

// Admitted 檢查是否成功入場
func (r *CheckinResult) Admitted() bool {
	return r.Outcome == OutcomeAdmitted
}

// UndoResult 撤銷入場結果
type UndoResult struct {
	Outcome    CheckinOutcome `json:"outcome"`
	TicketCode string         `json:"ticket_code"`
	Status     TicketStatus   `json:"status,omitempty"`
}
