package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/igrejaonline/portal/internal/model"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository stores login sessions. Implementations must make Delete
// idempotent: deleting an unknown session is not an error.
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	ByID(ctx context.Context, id string) (*model.Session, error)
	Touch(ctx context.Context, id string, lastSeenAt, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository returns the durable, database-backed session store.
func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `INSERT INTO sessions (id, user_id, user_agent, ip_address, expires_at, created_at, last_seen_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.CreatedAt,
		session.LastSeenAt,
	)
	return storageErr("sessions.create", err)
}

func (r *sessionRepository) ByID(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}

	err := r.db.GetContext(ctx, session, `SELECT * FROM sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, storageErr("sessions.by_id", err)
	}

	return session, nil
}

// Touch slides the session expiry. Concurrent touches race harmlessly:
// the last write wins.
func (r *sessionRepository) Touch(ctx context.Context, id string, lastSeenAt, expiresAt time.Time) error {
	query := `UPDATE sessions SET last_seen_at = $1, expires_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, lastSeenAt, expiresAt, id)
	if err != nil {
		return storageErr("sessions.touch", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storageErr("sessions.touch", err)
	}
	if rows == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return storageErr("sessions.delete", err)
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, storageErr("sessions.delete_expired", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, storageErr("sessions.delete_expired", err)
	}
	return rows, nil
}
