package handler

import (
	"net/http"

	"github.com/igrejaonline/portal/internal/model"
	"github.com/igrejaonline/portal/internal/service"
	"github.com/igrejaonline/portal/internal/validation"
)

type EventHandler struct {
	eventService *service.EventService
}

func NewEventHandler(eventService *service.EventService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
	}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventService.Events(r.Context())
	if err != nil {
		writeError(w, r, err, "Error fetching events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventService.Upcoming(r.Context())
	if err != nil {
		writeError(w, r, err, "Error fetching events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	event, err := h.eventService.Event(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "Error fetching event")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.NewEvent
	err := validation.DecodeJSON(r, &in)
	if err != nil {
		writeError(w, r, err, "Invalid event data")
		return
	}

	event, err := h.eventService.Create(r.Context(), &in)
	if err != nil {
		writeError(w, r, err, "Error creating event")
		return
	}
	writeJSON(w, http.StatusCreated, event)
}
