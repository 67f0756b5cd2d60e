package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/finity-auth/apiserver/internal/authz"
	"github.com/finity-auth/apiserver/internal/services"
	"github.com/finity-auth/apiserver/internal/store"
	"github.com/finity-auth/apiserver/types"
)

// UserHandler provides profile and admin endpoints over the user service.
type UserHandler struct {
	userService *services.UserService
	validate    *validator.Validate
}

// NewUserHandler constructs a handler with the provided service.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
		validate:    validator.New(),
	}
}

// UserRouter registers profile and admin routes on the given router. All
// routes require authentication; admin routes additionally require the
// admin role.
func UserRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService)

	r.Route("/me", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", handler.GetProfile)
		r.Put("/", handler.UpdateProfile)
		r.Delete("/", handler.DeleteAccount)
	})
	r.Route("/admin", func(r chi.Router) {
		r.Use(authMiddleware, handler.requireRole(types.RoleAdmin))
		r.Get("/users", handler.ListUsers)
		r.Get("/stats", handler.Stats)
	})
}

// requireRole builds middleware gating a route group on one role. The role
// is data, so every gated role shares the same path through authz; the
// resolved user is stashed in the context for the handlers behind the gate.
func (h *UserHandler) requireRole(role types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := h.currentUser(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if _, err := authz.RequireRole(user, role); err != nil {
				var denied *authz.AccessDeniedError
				if errors.As(err, &denied) {
					writeError(w, http.StatusForbidden, denied.Error())
					return
				}
				writeError(w, http.StatusInternalServerError, "failed to authorize")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// currentUser resolves the authenticated subject to a user record.
// A subject whose record no longer exists is unauthenticated, not denied.
func (h *UserHandler) currentUser(r *http.Request) (types.User, error) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		return types.User{}, err
	}
	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

// GetProfile returns the current user's own record.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfileRequest is a partial update of the caller's own profile.
// Omitted fields are left untouched; an empty full_name clears it.
type UpdateProfileRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Username *string `json:"username" validate:"omitempty,max=64"`
	FullName *string `json:"full_name" validate:"omitempty,max=256"`
}

// UpdateProfile applies a partial update to the caller's own record.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user, services.ProfileUpdateParams{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
	})
	if err != nil {
		var conflict *store.ConflictError
		if errors.As(err, &conflict) {
			writeError(w, http.StatusConflict, conflict.Error())
			return
		}
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteAccount removes the caller's own record. Deletion is unconditional;
// a repeated call fails earlier, at identity resolution.
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.userService.DeleteAccount(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListUsers returns every user. No ordering is guaranteed.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []types.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// Stats returns aggregate user counts.
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.userService.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
