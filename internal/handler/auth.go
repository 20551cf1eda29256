package handler

import (
	"net/http"

	"github.com/igrejaonline/portal/internal/ctxkeys"
	"github.com/igrejaonline/portal/internal/model"
	"github.com/igrejaonline/portal/internal/service/identity"
	"github.com/igrejaonline/portal/internal/validation"
)

type AuthHandler struct {
	provider      identity.Provider
	secureCookies bool
}

func NewAuthHandler(provider identity.Provider, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		provider:      provider,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	err := validation.DecodeJSON(r, &reg)
	if err != nil {
		writeError(w, r, err, "Invalid registration data")
		return
	}

	session, err := h.provider.Register(r.Context(), &reg, clientInfo(r))
	if err != nil {
		writeError(w, r, err, "Error registering user")
		return
	}

	if session.Token != "" {
		identity.SetCookie(w, session, h.secureCookies)
	}
	writeJSON(w, http.StatusCreated, session.User)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	err := validation.DecodeJSON(r, &creds)
	if err != nil {
		writeError(w, r, err, "Invalid login data")
		return
	}

	session, err := h.provider.Login(r.Context(), &creds, clientInfo(r))
	if err != nil {
		writeError(w, r, err, "Error logging in")
		return
	}

	identity.SetCookie(w, session, h.secureCookies)
	writeJSON(w, http.StatusOK, session.User)
}

// Logout always clears the cookie and succeeds, even without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := ctxkeys.Token(r.Context())
	if token == "" {
		token = identity.TokenFromRequest(r)
	}

	err := h.provider.Logout(r.Context(), token)
	if err != nil {
		writeError(w, r, err, "Error logging out")
		return
	}

	identity.ClearCookie(w, h.secureCookies)
	writeMessage(w, http.StatusOK, "Logged out")
}

func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ctxkeys.User(r.Context()))
}
