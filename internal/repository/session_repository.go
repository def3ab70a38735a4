package repository

import (
	"context"
	"ticketing-core/internal/model"
	apperrors "ticketing-core/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) (*model.Session, error)
	FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.Session, error)
	List(ctx context.Context) ([]*model.Session, error)
}

type SessionRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &SessionRepositoryImpl{
		pool: pool,
	}
}

const sessionColumns = `
	id, session_id, event_id, name, starts_at, capacity, status,
	created_at, updated_at
`

func scanSession(row pgx.Row, session *model.Session) error {
	return row.Scan(
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
}

func (r *SessionRepositoryImpl) Create(ctx context.Context, session *model.Session) (*model.Session, error) {
	query := `
		INSERT INTO sessions (session_id, event_id, name, starts_at, capacity, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + sessionColumns

	err := scanSession(r.pool.QueryRow(ctx, query,
		session.SessionID, session.EventID, session.Name,
		session.StartsAt, session.Capacity, session.Status,
	), session)

	if err != nil {
		return nil, err
	}

	return session, nil
}

func (r *SessionRepositoryImpl) FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE session_id = $1
	`

	var session model.Session
	err := scanSession(r.pool.QueryRow(ctx, query, sessionID), &session)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, err
	}

	return &session, nil
}

func (r *SessionRepositoryImpl) List(ctx context.Context) ([]*model.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		ORDER BY starts_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*model.Session, 0)
	for rows.Next() {
		var session model.Session
		if err := scanSession(rows, &session); err != nil {
			return nil, err
		}
		sessions = append(sessions, &session)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}
