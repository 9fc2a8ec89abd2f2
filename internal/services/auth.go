package services

import (
	"context"
	"errors"
	"strings"

	"dompet/internal/auth"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/storage"
)

// AuthService registers users and exchanges credentials for bearer tokens.
type AuthService struct {
	repo   *storage.Repository
	tokens *auth.Tokens
	logger *log.Logger
}

func NewAuthService(repo *storage.Repository, tokens *auth.Tokens, logger *log.Logger) *AuthService {
	if logger == nil {
		logger = log.Discard()
	}
	return &AuthService{repo: repo, tokens: tokens, logger: logger.WithComponent(log.ComponentAuth)}
}

func (s *AuthService) Register(ctx context.Context, in core.RegisterInput) (core.User, error) {
	if err := in.Validate(); err != nil {
		return core.User{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return core.User{}, err
	}
	u, err := s.repo.CreateUser(ctx, core.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return core.User{}, err
	}
	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, u.ID, log.FieldOperation, log.OpRegister)
	return u, nil
}

// Login never reveals whether the email exists.
func (s *AuthService) Login(ctx context.Context, email, password string) (core.LoginResult, error) {
	if err := (core.LoginInput{Email: email, Password: password}).Validate(); err != nil {
		return core.LoginResult{}, err
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		s.logger.WarnContext(ctx, "Login for unknown email", log.FieldOperation, log.OpLogin)
		return core.LoginResult{}, core.ErrInvalidCredential
	}
	if err != nil {
		return core.LoginResult{}, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		s.logger.WarnContext(ctx, "Login with wrong password", log.FieldUserID, u.ID, log.FieldOperation, log.OpLogin)
		return core.LoginResult{}, err
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return core.LoginResult{}, err
	}
	s.logger.InfoContext(ctx, "User logged in", log.FieldUserID, u.ID, log.FieldOperation, log.OpLogin)
	return core.LoginResult{Token: token, Name: u.Name}, nil
}

// Authenticate resolves a bearer token to a user id.
func (s *AuthService) Authenticate(token string) (int64, error) {
	return s.tokens.Verify(token)
}
