package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/auth"
	"warehouse-inventory-api/internal/handlers"
	"warehouse-inventory-api/internal/inventory"
	"warehouse-inventory-api/internal/models"
)

// loginUser handles user authentication
func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.BadRequest(w, "Invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := inventory.Validate(req); err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	user, err := s.Users.ByUsername(r.Context(), req.Username)
	if errors.Is(err, apperr.ErrNotFound) {
		handlers.WriteJSON(w, http.StatusUnauthorized, auth.ErrorResponse{Error: "Invalid credentials", Code: "INVALID_CREDENTIALS"})
		return
	}
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.Logger.Warn("failed login", "username", req.Username)
		handlers.WriteJSON(w, http.StatusUnauthorized, auth.ErrorResponse{Error: "Invalid credentials", Code: "INVALID_CREDENTIALS"})
		return
	}

	now := time.Now().UTC()
	if err := s.Users.TouchLogin(r.Context(), user.ID, now); err != nil {
		// login still succeeds
		s.Logger.Warn("failed to update last_login_at", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}

	token, err := s.JWTManager.GenerateToken(user.ID, user.Username, user.Roles)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: user})
}

// createUser registers an operator account
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.BadRequest(w, "Invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := inventory.Validate(req); err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	user, err := CreateUser(r.Context(), s.Users, req)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	s.Logger.Info("user created", "username", user.Username, "roles", user.Roles,
		"by", auth.UsernameFromContext(r.Context()))
	handlers.WriteJSON(w, http.StatusCreated, user)
}

// CreateUser hashes the password and stores the account. The bootstrap path
// in cmd/api shares it with the HTTP handler.
func CreateUser(ctx context.Context, users UserStore, req models.CreateUserRequest) (models.User, error) {
	if !models.ValidateRoles(req.Roles) {
		return models.User{}, apperr.Validation("roles", "roles must be chosen from %s", strings.Join(models.ValidRoles, ", "))
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, apperr.Validation("password", "password cannot be hashed: %v", err)
	}
	return users.Create(ctx, models.User{
		Username:     req.Username,
		PasswordHash: string(hashed),
		DisplayName:  req.DisplayName,
		Roles:        req.Roles,
		IsActive:     true,
	})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Users.List(r.Context())
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]any{"data": users})
}

type profileResponse struct {
	models.User
	Capabilities []models.Capability `json:"capabilities"`
}

// getUserProfile returns the caller's account and resolved capabilities
func (s *Server) getUserProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	user, err := s.Users.ByID(r.Context(), claims.UserID)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, profileResponse{
		User:         user,
		Capabilities: models.CapabilitiesFor(user.Roles).List(),
	})
}
