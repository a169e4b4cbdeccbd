package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Session wraps a Client with a token persisted on disk, so the command
// line tool stays logged in between invocations.
type Session struct {
	client    *Client
	tokenPath string
	account   Account
}

func NewSession(client *Client, tokenPath string) *Session {
	return &Session{client: client, tokenPath: tokenPath}
}

func (s *Session) Client() *Client {
	return s.client
}

// Account returns the account loaded by the last Login or Restore.
func (s *Session) Account() Account {
	return s.account
}

// Restore loads the persisted token and validates it against the server.
// A stale or rejected token is removed so the next Restore fails fast.
func (s *Session) Restore(ctx context.Context) error {
	raw, err := os.ReadFile(s.tokenPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("not logged in")
		}
		return fmt.Errorf("read token: %w", err)
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return fmt.Errorf("not logged in")
	}
	s.client.SetToken(token)

	// Any failure to confirm identity ends the stored session, so a dead
	// server or stale token never leaves a file that keeps failing.
	account, err := s.client.Me(ctx)
	if err != nil {
		_ = os.Remove(s.tokenPath)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 401 {
			return fmt.Errorf("session expired, log in again")
		}
		return err
	}

	s.account = account
	return nil
}

// Login authenticates and persists the token with owner-only permissions.
func (s *Session) Login(ctx context.Context, email, password string) (Account, error) {
	result, err := s.client.Login(ctx, email, password)
	if err != nil {
		return Account{}, err
	}

	if err := os.MkdirAll(filepath.Dir(s.tokenPath), 0o700); err != nil {
		return Account{}, fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(s.tokenPath, []byte(result.AccessToken), 0o600); err != nil {
		return Account{}, fmt.Errorf("persist token: %w", err)
	}

	s.account = result.User
	return result.User, nil
}

// Logout discards the local token. Tokens are not revocable server-side,
// so this only ends the local session.
func (s *Session) Logout() error {
	s.client.SetToken("")
	s.account = Account{}
	if err := os.Remove(s.tokenPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}
