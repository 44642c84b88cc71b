package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/campuskit/rollcall/internal/models"
	"github.com/campuskit/rollcall/internal/store"
	"github.com/campuskit/rollcall/pkg/crypto"
	apperrors "github.com/campuskit/rollcall/pkg/errors"
	"github.com/campuskit/rollcall/pkg/logger"
)

// ErrEmailTaken is returned when registration collides with an existing account.
var ErrEmailTaken = apperrors.New("EMAIL_TAKEN", "An account with this email already exists", http.StatusConflict)

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// LoginInput carries the credentials presented at login.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult bundles the authenticated user with their access token.
type LoginResult struct {
	User  *models.User
	Token string
}

// AuthService registers accounts and exchanges credentials for access tokens.
type AuthService struct {
	store store.Store
	jwt   *JWTService
	log   *zap.Logger
}

// NewAuthService wires an AuthService from its dependencies.
func NewAuthService(st store.Store, jwtService *JWTService) (*AuthService, error) {
	if st == nil {
		return nil, errors.New("auth service: store is required")
	}
	if jwtService == nil {
		return nil, errors.New("auth service: jwt service is required")
	}
	return &AuthService{store: st, jwt: jwtService, log: logger.WithModule("auth")}, nil
}

// Register creates a new account with a hashed password.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = models.RoleStudent
	}

	if name == "" || email == "" {
		return nil, apperrors.NewBadRequest("name and email are required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewBadRequest("password must be at least 8 characters")
	}
	if !models.ValidRole(role) {
		return nil, apperrors.NewBadRequest("unknown role")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, apperrors.Wrap(err, "auth service: hash password")
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: hashed,
		Role:     role,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, apperrors.Wrap(err, "auth service: create user")
	}

	s.log.Info("account registered",
		zap.String("user_id", user.ID),
		zap.String("role", user.Role),
	)
	return user, nil
}

// Login verifies the credentials and issues a signed access token. The same
// error comes back for an unknown email and a wrong password.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Wrap(err, "auth service: lookup user")
	}
	if user == nil || !crypto.VerifyPassword(user.Password, input.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateAccessToken(AccessTokenInput{UserID: user.ID, Role: user.Role})
	if err != nil {
		return nil, apperrors.Wrap(err, "auth service: issue token")
	}

	return &LoginResult{User: user, Token: token}, nil
}

// CurrentUser resolves the account behind validated claims.
func (s *AuthService) CurrentUser(ctx context.Context, claims *Claims) (*models.User, error) {
	if claims == nil {
		return nil, apperrors.ErrUnauthorized
	}

	user, err := s.store.User(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Wrap(err, "auth service: load user")
	}
	if user == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return user, nil
}
