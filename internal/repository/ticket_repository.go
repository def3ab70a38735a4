package repository

import (
	"context"
	"ticketing-core/internal/model"
	apperrors "ticketing-core/pkg/app_errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TicketRepository interface {
	Create(ctx context.Context, ticket *model.Ticket) (*model.Ticket, error)
	FindByCode(ctx context.Context, code string) (*model.Ticket, error)

	// Conditional writes: the compare-and-swap primitives behind check-in.
	// Both return apperrors.ErrStatusConflict when the row was not in the
	// expected state at write time.
	MarkCheckedIn(ctx context.Context, code string, operatorID string, at time.Time) (*model.Ticket, error)
	RevertCheckin(ctx context.Context, code string) (*model.Ticket, error)
	Invalidate(ctx context.Context, code string) error

	// Session-scoped reads backing the attendance projection.
	CountBySession(ctx context.Context, sessionID int) (int, error)
	CountUsedBySession(ctx context.Context, sessionID int) (int, error)
	ListUsedCodesBySession(ctx context.Context, sessionID int) ([]string, error)
}

type TicketRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &TicketRepositoryImpl{
		pool: pool,
	}
}

const ticketColumns = `
	id, ticket_code, session_id, order_ref, holder_name, seat_label,
	zone_name, tier_name, price, status, checked_in_at, checked_in_by,
	created_at, updated_at
`

func scanTicket(row pgx.Row, ticket *model.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketCode,
		&ticket.SessionID,
		&ticket.OrderRef,
		&ticket.HolderName,
		&ticket.SeatLabel,
		&ticket.ZoneName,
		&ticket.TierName,
		&ticket.Price,
		&ticket.Status,
		&ticket.CheckedInAt,
		&ticket.CheckedInBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func (r *TicketRepositoryImpl) Create(ctx context.Context, ticket *model.Ticket) (*model.Ticket, error) {
	query := `
		INSERT INTO tickets (
			ticket_code, session_id, order_ref, holder_name, seat_label,
			zone_name, tier_name, price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + ticketColumns

	err := scanTicket(r.pool.QueryRow(ctx, query,
		ticket.TicketCode, ticket.SessionID, ticket.OrderRef,
		ticket.HolderName, ticket.SeatLabel, ticket.ZoneName, ticket.TierName,
		ticket.Price, ticket.Status,
	), ticket)

	if err != nil {
		return nil, err
	}

	return ticket, nil
}

// FindByCode 以票碼查詢票券，連同場次資訊
func (r *TicketRepositoryImpl) FindByCode(ctx context.Context, code string) (*model.Ticket, error) {
	query := `
		SELECT t.id, t.ticket_code, t.session_id, t.order_ref, t.holder_name,
		       t.seat_label, t.zone_name, t.tier_name, t.price, t.status,
		       t.checked_in_at, t.checked_in_by, t.created_at, t.updated_at,
		       s.id, s.session_id, s.event_id, s.name, s.starts_at,
		       s.capacity, s.status, s.created_at, s.updated_at
		FROM tickets t
		JOIN sessions s ON s.id = t.session_id
		WHERE t.ticket_code = $1
	`

	var ticket model.Ticket
	var session model.Session
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&ticket.ID,
		&ticket.TicketCode,
		&ticket.SessionID,
		&ticket.OrderRef,
		&ticket.HolderName,
		&ticket.SeatLabel,
		&ticket.ZoneName,
		&ticket.TierName,
		&ticket.Price,
		&ticket.Status,
		&ticket.CheckedInAt,
		&ticket.CheckedInBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&session.ID,
		&session.SessionID,
		&session.EventID,
		&session.Name,
		&session.StartsAt,
		&session.Capacity,
		&session.Status,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}

	ticket.Session = &session
	return &ticket, nil
}

// MarkCheckedIn 將票券標記為已入場。單一條件式 UPDATE：只有在狀態仍為
// confirmed 時寫入，保證同一張票只有一個請求能贏得這次轉換。
func (r *TicketRepositoryImpl) MarkCheckedIn(ctx context.Context, code string, operatorID string, at time.Time) (*model.Ticket, error) {
	query := `
		UPDATE tickets
		SET status = $2, checked_in_at = $3, checked_in_by = $4, updated_at = $3
		WHERE ticket_code = $1 AND status = $5
		RETURNING ` + ticketColumns

	var ticket model.Ticket
	err := scanTicket(r.pool.QueryRow(ctx, query,
		code, model.TicketStatusUsed, at.UTC(), operatorID, model.TicketStatusConfirmed,
	), &ticket)

	if err != nil {
		if err == pgx.ErrNoRows {
			// ticket missing or no longer confirmed; caller re-reads
			return nil, apperrors.ErrStatusConflict
		}
		return nil, err
	}

	return &ticket, nil
}

// RevertCheckin 撤銷入場：狀態仍為 used 時轉回 confirmed 並清除入場資訊
func (r *TicketRepositoryImpl) RevertCheckin(ctx context.Context, code string) (*model.Ticket, error) {
	query := `
		UPDATE tickets
		SET status = $2, checked_in_at = NULL, checked_in_by = NULL, updated_at = $3
		WHERE ticket_code = $1 AND status = $4
		RETURNING ` + ticketColumns

	var ticket model.Ticket
	err := scanTicket(r.pool.QueryRow(ctx, query,
		code, model.TicketStatusConfirmed, time.Now().UTC(), model.TicketStatusUsed,
	), &ticket)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrStatusConflict
		}
		return nil, err
	}

	return &ticket, nil
}

// Invalidate 行政作廢，不可逆；已入場或已作廢的票不受影響
func (r *TicketRepositoryImpl) Invalidate(ctx context.Context, code string) error {
	query := `
		UPDATE tickets
		SET status = $2, updated_at = $3
		WHERE ticket_code = $1 AND status IN ($4, $5)
	`

	result, err := r.pool.Exec(ctx, query,
		code, model.TicketStatusCancelled, time.Now().UTC(),
		model.TicketStatusReserved, model.TicketStatusConfirmed,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrStatusConflict
	}

	return nil
}

func (r *TicketRepositoryImpl) CountBySession(ctx context.Context, sessionID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tickets
		WHERE session_id = $1 AND status != $2
	`

	var count int
	err := r.pool.QueryRow(ctx, query, sessionID, model.TicketStatusCancelled).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *TicketRepositoryImpl) CountUsedBySession(ctx context.Context, sessionID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tickets
		WHERE session_id = $1 AND status = $2
	`

	var count int
	err := r.pool.QueryRow(ctx, query, sessionID, model.TicketStatusUsed).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *TicketRepositoryImpl) ListUsedCodesBySession(ctx context.Context, sessionID int) ([]string, error) {
	query := `
		SELECT ticket_code
		FROM tickets
		WHERE session_id = $1 AND status = $2
	`

	rows, err := r.pool.Query(ctx, query, sessionID, model.TicketStatusUsed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := make([]string, 0)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return codes, nil
}
