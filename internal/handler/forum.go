package handler

import (
	"net/http"

	"github.com/igrejaonline/portal/internal/ctxkeys"
	"github.com/igrejaonline/portal/internal/model"
	"github.com/igrejaonline/portal/internal/service"
	"github.com/igrejaonline/portal/internal/validation"
)

type ForumHandler struct {
	forumService *service.ForumService
}

func NewForumHandler(forumService *service.ForumService) *ForumHandler {
	return &ForumHandler{
		forumService: forumService,
	}
}

func (h *ForumHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.forumService.Topics(r.Context())
	if err != nil {
		writeError(w, r, err, "Error fetching forum topics")
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

// ShowTopic counts a view and returns {topic, replies}.
func (h *ForumHandler) ShowTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	detail, err := h.forumService.Topic(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "Error fetching forum topic")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *ForumHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var in model.NewForumTopic
	err := validation.DecodeJSON(r, &in)
	if err != nil {
		writeError(w, r, err, "Invalid forum topic data")
		return
	}

	topic, err := h.forumService.CreateTopic(r.Context(), ctxkeys.User(r.Context()), &in)
	if err != nil {
		writeError(w, r, err, "Error creating forum topic")
		return
	}
	writeJSON(w, http.StatusCreated, topic)
}

func (h *ForumHandler) CreateReply(w http.ResponseWriter, r *http.Request) {
	var in model.NewForumReply
	err := validation.DecodeJSON(r, &in)
	if err != nil {
		writeError(w, r, err, "Invalid forum reply data")
		return
	}

	reply, err := h.forumService.CreateReply(r.Context(), ctxkeys.User(r.Context()), &in)
	if err != nil {
		writeError(w, r, err, "Error creating forum reply")
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}
