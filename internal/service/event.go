package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/igrejaonline/portal/internal/apperr"
	"github.com/igrejaonline/portal/internal/model"
	"github.com/igrejaonline/portal/internal/repository"
)

type EventService struct {
	eventRepository repository.EventRepository
	now             func() time.Time
}

func NewEventService(eventRepository repository.EventRepository) *EventService {
	return &EventService{
		eventRepository: eventRepository,
		now:             utcNow,
	}
}

// Events lists every event, most recently announced first.
func (s *EventService) Events(ctx context.Context) ([]*model.Event, error) {
	return s.eventRepository.Events(ctx)
}

// Upcoming lists events that have not ended yet, soonest first.
func (s *EventService) Upcoming(ctx context.Context) ([]*model.Event, error) {
	return s.eventRepository.Upcoming(ctx, s.now())
}

func (s *EventService) Event(ctx context.Context, id string) (*model.Event, error) {
	event, err := s.eventRepository.ByID(ctx, id)
	if errors.Is(err, repository.ErrEventNotFound) {
		return nil, apperr.WithCause(apperr.NotFound("Event not found"), err)
	}
	return event, err
}

func (s *EventService) Create(ctx context.Context, in *model.NewEvent) (*model.Event, error) {
	err := requireText(map[string]string{"title": in.Title, "description": in.Description, "location": in.Location})
	if err != nil {
		return nil, err
	}

	if in.StartTime.IsZero() {
		return nil, apperr.Validation("startTime is required")
	}
	if in.EndTime.IsZero() {
		return nil, apperr.Validation("endTime is required")
	}
	if in.EndTime.Before(in.StartTime) {
		return nil, apperr.Validation("endTime must not be before startTime")
	}

	event := &model.Event{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		StartTime:   in.StartTime.UTC().Truncate(time.Microsecond),
		EndTime:     in.EndTime.UTC().Truncate(time.Microsecond),
		Category:    in.Category,
		CreatedAt:   s.now(),
	}

	err = s.eventRepository.Create(ctx, event)
	if err != nil {
		return nil, err
	}

	return event, nil
}
