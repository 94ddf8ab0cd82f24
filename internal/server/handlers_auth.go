package server

import (
	"errors"
	"net/http"

	"github.com/shelfline/feedengine/internal/auth"
	"github.com/shelfline/feedengine/internal/model"
	"github.com/shelfline/feedengine/internal/storage"
)

// HandleSignup implements POST /auth/signup.
func (h *Handlers) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, model.NewValidationError("malformed request body"))
		return
	}
	if err := validateStruct(req); err != nil {
		writeAppError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeAppError(w, r, model.NewTransientError("failed to hash password", err))
		return
	}

	u, err := h.deps.DB.CreateUser(r.Context(), req.Email, hash)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	h.issueSession(w, r, u)
	writeJSON(w, r, http.StatusCreated, u.Public())
}

// HandleLogin implements POST /auth/login. An unknown email runs
// auth.DummyVerify so its response timing matches the wrong-password path,
// which runs the real VerifyPassword (matches the teacher's HandleAuthToken
// timing mitigation).
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, model.NewValidationError("malformed request body"))
		return
	}
	if err := validateStruct(req); err != nil {
		writeAppError(w, r, err)
		return
	}

	u, err := h.deps.DB.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			auth.DummyVerify()
			writeAppError(w, r, model.NewAuthRequiredError("invalid email or password"))
			return
		}
		writeAppError(w, r, err)
		return
	}

	ok, err := auth.VerifyPassword(req.Password, u.PasswordHash)
	if err != nil || !ok {
		writeAppError(w, r, model.NewAuthRequiredError("invalid email or password"))
		return
	}

	h.issueSession(w, r, u)
	writeJSON(w, r, http.StatusOK, u.Public())
}

// HandleLogout clears the session cookie. Not named in spec §6 but implied
// by a cookie-based session model having some way to end it.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.deps.CookieName, h.deps.CookieSecure)
	writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

// HandleMe implements GET /auth/me.
func (h *Handlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	if userID == "" {
		writeJSON(w, r, http.StatusOK, map[string]any{"user": nil})
		return
	}

	u, err := h.deps.DB.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, r, http.StatusOK, map[string]any{"user": nil})
			return
		}
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"user": u.Public()})
}

func (h *Handlers) issueSession(w http.ResponseWriter, _ *http.Request, u model.User) {
	token, exp, err := h.deps.JWTMgr.IssueSessionToken(u.ID, u.Email)
	if err != nil {
		return
	}
	auth.SetSessionCookie(w, h.deps.CookieName, token, exp, h.deps.CookieSecure)
}
