package handler

import (
	"net/http"

	"github.com/igrejaonline/portal/internal/ctxkeys"
	"github.com/igrejaonline/portal/internal/model"
	"github.com/igrejaonline/portal/internal/service"
	"github.com/igrejaonline/portal/internal/validation"
)

type BlogHandler struct {
	blogService *service.BlogService
}

func NewBlogHandler(blogService *service.BlogService) *BlogHandler {
	return &BlogHandler{
		blogService: blogService,
	}
}

func (h *BlogHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.blogService.Posts(r.Context())
	if err != nil {
		writeError(w, r, err, "Error fetching blog posts")
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *BlogHandler) Featured(w http.ResponseWriter, r *http.Request) {
	post, err := h.blogService.Featured(r.Context())
	if err != nil {
		writeError(w, r, err, "Error fetching featured blog post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Show counts a view before returning the post.
func (h *BlogHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	post, err := h.blogService.Post(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "Error fetching blog post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.NewBlogPost
	err := validation.DecodeJSON(r, &in)
	if err != nil {
		writeError(w, r, err, "Invalid blog post data")
		return
	}

	post, err := h.blogService.Create(r.Context(), ctxkeys.User(r.Context()), &in)
	if err != nil {
		writeError(w, r, err, "Error creating blog post")
		return
	}
	writeJSON(w, http.StatusCreated, post)
}
