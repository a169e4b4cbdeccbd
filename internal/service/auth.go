package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"siakad/records/internal/auth"
	"siakad/records/internal/config"
	"siakad/records/internal/crypto"
	"siakad/records/internal/model"
	"siakad/records/internal/repository"
	"siakad/records/internal/shared"
)

type AuthService struct {
	cfg      config.Config
	store    repository.Store
	throttle LoginThrottle
}

// NewAuthService wires the auth flows. throttle may be nil, in which case
// failed-login throttling is disabled.
func NewAuthService(cfg config.Config, store repository.Store, throttle LoginThrottle) *AuthService {
	return &AuthService{cfg: cfg, store: store, throttle: throttle}
}

func (s *AuthService) Register(ctx context.Context, email, password, name, role string) (model.Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" || name == "" {
		return model.Account{}, fmt.Errorf("%w: email, password and name are required", shared.ErrInvalidInput)
	}
	if role == "" {
		role = model.RoleUser
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return model.Account{}, fmt.Errorf("%w: role must be %q or %q", shared.ErrInvalidInput, model.RoleUser, model.RoleAdmin)
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return model.Account{}, err
	}

	account := model.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Accounts().Create(ctx, account); err != nil {
		return model.Account{}, err
	}
	return account, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (model.Account, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return model.Account{}, "", fmt.Errorf("%w: missing credentials", shared.ErrInvalidInput)
	}

	if s.throttle != nil {
		locked, err := s.throttle.Locked(ctx, email)
		if err == nil && locked {
			return model.Account{}, "", shared.ErrRateLimited
		}
	}

	account, err := s.store.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.recordFailure(ctx, email)
			return model.Account{}, "", shared.ErrUnauthorized
		}
		return model.Account{}, "", err
	}
	if err := crypto.CheckPassword(account.PasswordHash, password); err != nil {
		s.recordFailure(ctx, email)
		return model.Account{}, "", shared.ErrUnauthorized
	}

	if s.throttle != nil {
		_ = s.throttle.Reset(ctx, email)
	}

	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, account.ID, account.Role)
	if err != nil {
		return model.Account{}, "", err
	}
	return account, token, nil
}

// Verify checks signature and expiry, then re-loads the bound account so the
// returned role reflects store state rather than token claims.
func (s *AuthService) Verify(ctx context.Context, token string) (model.Account, error) {
	claims, err := auth.ParseToken(s.cfg.JWTSecret, token)
	if err != nil {
		return model.Account{}, shared.ErrUnauthorized
	}
	account, err := s.store.Accounts().GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return model.Account{}, shared.ErrUnauthorized
		}
		return model.Account{}, err
	}
	return account, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, token string) (model.Account, error) {
	return s.Verify(ctx, token)
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	if s.throttle == nil {
		return
	}
	_ = s.throttle.RecordFailure(ctx, email)
}
