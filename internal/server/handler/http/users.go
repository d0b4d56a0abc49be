// Package http provides HTTP handlers for user registration, authentication,
// breach checks, listing and deletion.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/atinyakov/GateKeeper/internal/models"
	"github.com/atinyakov/GateKeeper/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PasswordLeakCheckedHeader tells Register that the caller already ran the
// breach check for the submitted password.
const PasswordLeakCheckedHeader = "Password-Leak-Checked"

// Response bodies. They are part of the public contract.
const (
	MsgRegistrationSuccessful = "Registration successful"
	MsgUserExists             = "User already exists"
	MsgUserNotFound           = "User not found"
	MsgPasswordLeaked         = "The password you typed has been leaked in a data breach and should not be used"
	MsgInvalidPassword        = "The password you typed is incorrect"
	MsgRegistrationFailed     = "Registration failed; contact site administrator"
	MsgInvalidRequest         = "invalid request"
	MsgInternalError          = "internal error"
)

const maxBodyBytes = 1 << 20

// UserService defines the user operations required by the HTTP handlers.
type UserService interface {
	// GetAll lists every registered user.
	GetAll(ctx context.Context) ([]models.User, error)
	// Register adds user, skipping the breach lookup when leakChecked is true.
	Register(ctx context.Context, user models.User, leakChecked bool) error
	// Authenticate returns the user matching candidate's credentials.
	Authenticate(ctx context.Context, candidate models.User) (*models.User, error)
	// PasswordLeaked reports whether password is known to be breached.
	PasswordLeaked(ctx context.Context, password string) (bool, error)
	// Delete removes the user if present.
	Delete(ctx context.Context, username string) error
}

// UserHandler handles the /users endpoints.
type UserHandler struct {
	// UserService performs the underlying user operations.
	UserService UserService
	// Log receives collaborator failures. A nil Log discards them.
	Log *zap.Logger
}

// response is a status code and a body. String bodies are written as
// plain text, nil bodies are omitted and anything else is encoded as JSON.
type response struct {
	status int
	body   any
}

// endpoint adapts a handler returning a response to http.Handler.
type endpoint func(r *http.Request) response

func (e endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res := e(r)
	switch body := res.body.(type) {
	case nil:
		w.WriteHeader(res.status)
	case string:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(res.status)
		_, _ = io.WriteString(w, body)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(res.status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func text(status int, msg string) response { return response{status: status, body: msg} }

func (h *UserHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// decodeUser reads a JSON user and rejects bodies without a username.
func decodeUser(r *http.Request) (models.User, bool) {
	var u models.User
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&u); err != nil {
		return u, false
	}
	return u, u.Username != ""
}

// List returns every registered user as a JSON array of usernames.
func (h *UserHandler) List(r *http.Request) response {
	users, err := h.UserService.GetAll(r.Context())
	if err != nil {
		h.logger().Error("list users", zap.Error(err))
		return text(http.StatusInternalServerError, MsgInternalError)
	}
	listed := make([]models.ListedUser, 0, len(users))
	for _, u := range users {
		listed = append(listed, models.ListedUser{Username: u.Username})
	}
	return response{status: http.StatusOK, body: listed}
}

// Register registers the user in the JSON body. The Password-Leak-Checked
// header is optional and defaults to false.
func (h *UserHandler) Register(r *http.Request) response {
	user, ok := decodeUser(r)
	if !ok {
		return text(http.StatusBadRequest, MsgInvalidRequest)
	}

	leakChecked := false
	if v := strings.TrimSpace(r.Header.Get(PasswordLeakCheckedHeader)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return text(http.StatusBadRequest, MsgInvalidRequest)
		}
		leakChecked = b
	}

	err := h.UserService.Register(r.Context(), user, leakChecked)
	switch {
	case err == nil:
		return text(http.StatusOK, MsgRegistrationSuccessful)
	case errors.Is(err, service.ErrDuplicateUser):
		return text(http.StatusBadRequest, MsgUserExists)
	case errors.Is(err, service.ErrBreachedPassword):
		return text(http.StatusForbidden, MsgPasswordLeaked)
	default:
		return text(http.StatusInternalServerError, MsgRegistrationFailed)
	}
}

// Authenticate returns the stored user when the JSON body's credentials match.
func (h *UserHandler) Authenticate(r *http.Request) response {
	candidate, ok := decodeUser(r)
	if !ok {
		return text(http.StatusBadRequest, MsgInvalidRequest)
	}

	user, err := h.UserService.Authenticate(r.Context(), candidate)
	switch {
	case err == nil:
		return response{status: http.StatusOK, body: user}
	case errors.Is(err, service.ErrUnknownUser):
		return text(http.StatusBadRequest, MsgUserNotFound)
	case errors.Is(err, service.ErrInvalidCredentials):
		return text(http.StatusUnauthorized, MsgInvalidPassword)
	default:
		h.logger().Error("authenticate", zap.String("username", candidate.Username), zap.Error(err))
		return text(http.StatusInternalServerError, MsgInternalError)
	}
}

// IsPasswordLeaked treats the raw request body as the password and answers
// with a JSON boolean.
func (h *UserHandler) IsPasswordLeaked(r *http.Request) response {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return text(http.StatusBadRequest, MsgInvalidRequest)
	}

	leaked, err := h.UserService.PasswordLeaked(r.Context(), string(b))
	if err != nil {
		h.logger().Error("breach check", zap.Error(err))
		return text(http.StatusInternalServerError, MsgInternalError)
	}
	return response{status: http.StatusOK, body: leaked}
}

// Delete removes the user named in the path. Unknown users succeed too.
func (h *UserHandler) Delete(r *http.Request) response {
	// chi routes on RawPath when it is set, leaving the segment escaped;
	// otherwise the segment is already decoded and must not be decoded again.
	username := chi.URLParam(r, "username")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(username)
		if err != nil {
			return text(http.StatusBadRequest, MsgInvalidRequest)
		}
		username = unescaped
	}

	if err := h.UserService.Delete(r.Context(), username); err != nil {
		h.logger().Error("delete user", zap.String("username", username), zap.Error(err))
		return text(http.StatusInternalServerError, MsgInternalError)
	}
	return response{status: http.StatusOK}
}
