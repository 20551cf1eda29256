package handler

import (
	"net/http"

	"github.com/igrejaonline/portal/internal/ctxkeys"
	"github.com/igrejaonline/portal/internal/model"
	"github.com/igrejaonline/portal/internal/service"
	"github.com/igrejaonline/portal/internal/validation"
)

type StudyHandler struct {
	studyService *service.StudyService
}

func NewStudyHandler(studyService *service.StudyService) *StudyHandler {
	return &StudyHandler{
		studyService: studyService,
	}
}

func (h *StudyHandler) List(w http.ResponseWriter, r *http.Request) {
	studies, err := h.studyService.Studies(r.Context())
	if err != nil {
		writeError(w, r, err, "Error fetching Bible studies")
		return
	}
	writeJSON(w, http.StatusOK, studies)
}

func (h *StudyHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	study, err := h.studyService.Study(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "Error fetching Bible study")
		return
	}
	writeJSON(w, http.StatusOK, study)
}

func (h *StudyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.NewBibleStudy
	err := validation.DecodeJSON(r, &in)
	if err != nil {
		writeError(w, r, err, "Invalid Bible study data")
		return
	}

	study, err := h.studyService.Create(r.Context(), ctxkeys.User(r.Context()), &in)
	if err != nil {
		writeError(w, r, err, "Error creating Bible study")
		return
	}
	writeJSON(w, http.StatusCreated, study)
}
