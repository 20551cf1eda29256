package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/igrejaonline/portal/internal/model"
)

var ErrEventNotFound = errors.New("event not found")

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	ByID(ctx context.Context, id string) (*model.Event, error)
	// Events lists every event, newest first.
	Events(ctx context.Context) ([]*model.Event, error)
	// Upcoming lists events that haven't ended by now, soonest first.
	Upcoming(ctx context.Context, now time.Time) ([]*model.Event, error)
}

type eventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	query := `INSERT INTO events (id, title, description, location, start_time, end_time, category, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Title,
		event.Description,
		event.Location,
		event.StartTime,
		event.EndTime,
		event.Category,
		event.CreatedAt,
	)
	return storageErr("events.create", err)
}

func (r *eventRepository) ByID(ctx context.Context, id string) (*model.Event, error) {
	event := &model.Event{}

	err := r.db.GetContext(ctx, event, `SELECT * FROM events WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, storageErr("events.by_id", err)
	}

	return event, nil
}

func (r *eventRepository) Events(ctx context.Context) ([]*model.Event, error) {
	events := []*model.Event{}

	err := r.db.SelectContext(ctx, &events, `SELECT * FROM events ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, storageErr("events.list", err)
	}

	return events, nil
}

func (r *eventRepository) Upcoming(ctx context.Context, now time.Time) ([]*model.Event, error) {
	events := []*model.Event{}

	err := r.db.SelectContext(ctx, &events, `SELECT * FROM events WHERE end_time >= $1 ORDER BY start_time ASC, id`, now)
	if err != nil {
		return nil, storageErr("events.upcoming", err)
	}

	return events, nil
}
