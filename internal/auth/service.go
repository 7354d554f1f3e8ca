package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tutoria.org/internal/identity"
)

// Accounts is the slice of the identity store the credential service needs.
type Accounts interface {
	FindByUsername(ctx context.Context, username string) (*identity.Account, error)
}

// Session is the payload returned on a successful login.
type Session struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresAt   time.Time        `json:"expira_en"`
	User        identity.Account `json:"usuario"`
}

// TokenInfo is the payload returned when a token validates.
type TokenInfo struct {
	Valid     bool          `json:"valido"`
	AccountID int64         `json:"usuario_id"`
	Username  string        `json:"username"`
	Role      identity.Role `json:"rol"`
	ExpiresAt time.Time     `json:"expira"`
}

// Service issues and checks bearer tokens against stored credentials.
type Service struct {
	accounts Accounts
	ttl      time.Duration
}

func NewService(accounts Accounts, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{accounts: accounts, ttl: ttl}
}

// Login checks the username/password pair and returns a signed session.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := VerifyPassword(account.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, err := GenerateToken(account.ID, account.Username, account.Role, s.ttl)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   time.Now().UTC().Add(s.ttl),
		User:        *account,
	}, nil
}

// Validate parses the token and reports its claims.
func (s *Service) Validate(token string) (*TokenInfo, error) {
	claims, err := ParseAndValidate(token)
	if err != nil {
		return nil, err
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return nil, err
	}
	return &TokenInfo{
		Valid:     true,
		AccountID: accountID,
		Username:  claims.Username,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
