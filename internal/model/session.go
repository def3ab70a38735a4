package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusOnSale    SessionStatus = "on_sale"
	SessionStatusClosed    SessionStatus = "closed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Session 場次模型，capacity 為空表示不設上限（沿用場地容量）
type Session struct {
	ID        int           `json:"id" db:"id"`
	SessionID uuid.UUID     `json:"session_id" db:"session_id"`
	EventID   uuid.UUID     `json:"event_id" db:"event_id"`
	Name      string        `json:"name" db:"name"`
	StartsAt  time.Time     `json:"starts_at" db:"starts_at"`
	Capacity  *int          `json:"capacity,omitempty" db:"capacity"`
	Status    SessionStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// SessionStats is the attendance projection served to the gate dashboard.
// Derived, never authoritative: staleness is acceptable, double counting is
// not.
type SessionStats struct {
	SessionID  string  `json:"session_id"`
	Total      int     `json:"total"`
	CheckedIn  int     `json:"checked_in"`
	Pending    int     `json:"pending"`
	Percentage float64 `json:"percentage"`
}

// RecentCheckin 最近入場紀錄（儀表板用）
type RecentCheckin struct {
	TicketCode  string    `json:"ticket_code"`
	HolderName  string    `json:"holder_name,omitempty"`
	OperatorID  string    `json:"operator_id"`
	CheckedInAt time.Time `json:"checked_in_at"`
}
