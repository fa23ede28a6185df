package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/auth"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/repository"
)

// UserService handles accounts: signup, login, and preferences.
type UserService struct {
	users  UserStore
	tokens *auth.TokenManager
	log    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(users UserStore, tokens *auth.TokenManager, log *zap.Logger) *UserService {
	return &UserService{users: users, tokens: tokens, log: log.Named("users")}
}

// Signup creates an account and returns it with a session token.
func (s *UserService) Signup(ctx context.Context, req model.SignupRequest) (*model.AuthResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	switch {
	case req.Name == "":
		return nil, validationErr("name is required")
	case len(req.Name) > 50:
		return nil, validationErr("name cannot exceed 50 characters")
	case !isValidEmail(req.Email):
		return nil, validationErr("a valid email address is required")
	case len(req.Password) < 6:
		return nil, validationErr("password must be at least 6 characters")
	}
	prefs, err := normalizePreferences(req.Preferences)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}

	user, err := s.users.CreateUser(ctx, req.Name, req.Email, hash, prefs, req.IsAdmin)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.log.Info("user signed up", zap.String("user_id", user.ID))
	return &model.AuthResponse{User: user, Token: token}, nil
}

// Login verifies credentials and returns the user with a fresh token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return nil, validationErr("email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	if err := s.users.TouchLogin(ctx, user.ID); err != nil {
		s.log.Warn("record login time", zap.Error(err))
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.log.Info("user logged in", zap.String("user_id", user.ID))
	return &model.AuthResponse{User: user, Token: token}, nil
}

// GetUser returns the account for the given ID.
func (s *UserService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// GetPreferences returns the user's preference map.
func (s *UserService) GetPreferences(ctx context.Context, userID string) (model.Preferences, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Preferences, nil
}

// UpdatePreferences replaces the user's preference map. Unknown type tags
// fail validation.
func (s *UserService) UpdatePreferences(ctx context.Context, userID string, prefs model.Preferences) (model.Preferences, error) {
	normalized, err := normalizePreferences(prefs)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePreferences(ctx, userID, normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// normalizePreferences rejects unknown type tags and fills in an explicit
// false for every absent known type.
func normalizePreferences(prefs model.Preferences) (model.Preferences, error) {
	for t := range prefs {
		if !model.ValidEventType(string(t)) {
			return nil, validationErr("unknown event type %q in preferences", t)
		}
	}
	out := model.Preferences{}
	for _, t := range model.EventTypes {
		out[t] = prefs[t]
	}
	return out, nil
}
