package handler

import (
	"errors"
	"net/http"

	"github.com/igrejaonline/portal/internal/ctxkeys"
	"github.com/igrejaonline/portal/internal/model"
	"github.com/igrejaonline/portal/internal/service"
	"github.com/igrejaonline/portal/internal/validation"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Show returns the public subset of a user for author attribution.
func (h *UserHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	user, err := h.userService.PublicProfile(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "Error fetching user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update model.ProfileUpdate
	err := validation.DecodeJSON(r, &update)
	if err != nil {
		writeError(w, r, err, "Invalid profile data")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), ctxkeys.User(r.Context()).ID, &update)
	if err != nil {
		writeError(w, r, err, "Error updating profile")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, validation.ImageConstraints.MaxSize+(1<<20))

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer func() { _ = file.Close() }()

	user, err := h.userService.UploadAvatar(r.Context(), ctxkeys.User(r.Context()).ID, file, header)
	if errors.Is(err, service.ErrStorageDisabled) {
		writeMessage(w, http.StatusServiceUnavailable, "Avatar uploads are not available")
		return
	}
	if err != nil {
		writeError(w, r, err, "Error uploading avatar")
		return
	}

	writeJSON(w, http.StatusOK, user)
}
