package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bookdesk/internal/auth"
	"bookdesk/internal/model"
	"bookdesk/internal/repository"
)

// UserStore is the account persistence needed by authentication.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
}

// AuthService issues tokens and manages API accounts.
type AuthService struct {
	users    UserStore
	secret   []byte
	tokenTTL time.Duration
	log      *slog.Logger
}

// NewAuthService constructs an AuthService. secret signs access tokens,
// tokenTTL bounds their lifetime.
func NewAuthService(users UserStore, secret []byte, tokenTTL time.Duration, log *slog.Logger) *AuthService {
	return &AuthService{users: users, secret: secret, tokenTTL: tokenTTL, log: log}
}

// Login validates the credentials and returns a signed bearer token for
// the account. A wrong password surfaces as ErrInvalidCredentials, an
// unknown username as ErrUserNotFound.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (string, *model.User, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return "", nil, repository.ErrInvalidCredentials
	}

	token, err := auth.CreateAccessToken(user.Username, s.secret, s.tokenTTL)
	if err != nil {
		return "", nil, fmt.Errorf("create access token: %w", err)
	}

	s.log.Info("user logged in", "username", user.Username)
	return token, user, nil
}

// Register creates an API account. The password is stored only as a
// bcrypt hash; the password policy itself is enforced at the request
// validation layer.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     req.Username,
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("account created", "username", user.Username)
	return user, nil
}

// VerifyToken checks a presented bearer token and resolves it back to an
// account. Tokens for accounts that no longer exist are rejected.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*model.User, error) {
	claims, err := auth.ParseValidate(token, s.secret)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByUsername(ctx, claims.Username)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	return user, nil
}
