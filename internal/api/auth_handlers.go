package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cipherchat/cipherchat-back/internal/apperr"
	"github.com/cipherchat/cipherchat-back/internal/auth"
	"github.com/cipherchat/cipherchat-back/internal/models"
	"github.com/cipherchat/cipherchat-back/internal/validate"
)

type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type registerResponse struct {
	ID        uuid.UUID       `json:"id"`
	Username  string          `json:"username"`
	Role      models.UserRole `json:"role"`
	CreatedAt time.Time       `json:"created_at"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apperr.Respond(w, apperr.ErrInvalidRequestFormat)
		return
	}

	var items []apperr.Item
	items = append(items, validate.Username(body.Username)...)
	items = append(items, validate.Password(body.Password)...)
	items = append(items, validate.ConfirmPassword(body.Password, body.ConfirmPassword)...)
	if len(items) > 0 {
		apperr.Respond(w, apperr.Validation(items))
		return
	}

	passwordHash, err := auth.HashPassword(body.Password)
	if err != nil {
		s.logger.Error(r.Context(), "hashing password: %v", err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}

	user, err := s.db.InsertUser(r.Context(), body.Username, passwordHash, models.RoleUser)
	if err != nil {
		s.logger.Error(r.Context(), "inserting user: %v", err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}
	if user == nil {
		apperr.Respond(w, apperr.ErrUsernameAlreadyExists)
		return
	}

	s.logger.Info(r.Context(), "registered user %s", user.Username)
	apperr.RespondJSON(w, http.StatusOK, registerResponse{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apperr.Respond(w, apperr.ErrInvalidRequestFormat)
		return
	}

	var items []apperr.Item
	items = append(items, validate.Username(body.Username)...)
	items = append(items, validate.Password(body.Password)...)
	if len(items) > 0 {
		apperr.Respond(w, apperr.Validation(items))
		return
	}

	user, err := s.db.GetUserByUsername(r.Context(), body.Username)
	if err != nil {
		s.logger.Error(r.Context(), "looking up user: %v", err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}
	if user == nil || !auth.VerifyPassword(user.PasswordHash, body.Password) {
		apperr.Respond(w, apperr.ErrWrongCredentials)
		return
	}

	pair, err := s.issueTokenPair(r, user.ID, user.Role)
	if err != nil {
		s.logger.Error(r.Context(), "issuing token pair: %v", err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}

	s.logger.Info(r.Context(), "user %s logged in", user.Username)
	apperr.RespondJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apperr.Respond(w, apperr.ErrInvalidRequestFormat)
		return
	}

	tokenHash := auth.HashData([]byte(body.RefreshToken))
	stored, err := s.db.GetRefreshTokenByHash(r.Context(), tokenHash)
	if err != nil {
		s.logger.Error(r.Context(), "looking up refresh token: %v", err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}
	if stored == nil || stored.ExpiresAt.Before(time.Now()) {
		apperr.Respond(w, apperr.ErrSessionExpired)
		return
	}

	// Rotation: the presented token is single use.
	if _, err := s.db.DeleteRefreshTokenByHash(r.Context(), tokenHash); err != nil {
		s.logger.Error(r.Context(), "deleting refresh token: %v", err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}

	pair, err := s.issueTokenPair(r, stored.UserID, models.RoleUser)
	if err != nil {
		s.logger.Error(r.Context(), "issuing token pair: %v", err)
		apperr.Respond(w, apperr.ErrInternal)
		return
	}

	apperr.RespondJSON(w, http.StatusOK, pair)
}

func (s *Server) issueTokenPair(r *http.Request, userID uuid.UUID, role models.UserRole) (*tokenPairResponse, error) {
	accessToken, err := s.tokens.GenerateAccessToken(userID, role)
	if err != nil {
		return nil, err
	}

	refreshToken, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	refreshExpiry := time.Duration(s.cfg.RefreshExpiry) * time.Second
	if _, err := s.db.InsertRefreshToken(r.Context(), userID, auth.HashData([]byte(refreshToken)), refreshExpiry); err != nil {
		return nil, err
	}

	return &tokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
