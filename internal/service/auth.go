package service

import (
	"context"
	"errors"
	"time"

	"formexport/pkg/util"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// Account is a configured login and the role its tokens carry.
type Account struct {
	Username     string
	PasswordHash string
	Role         string
}

// AuthService checks the configured accounts and issues tokens.
type AuthService struct {
	accounts  []Account
	jwtSecret string
	ttl       time.Duration
}

// NewAuthService skips accounts without a username or password hash.
func NewAuthService(jwtSecret string, ttl time.Duration, accounts ...Account) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s := &AuthService{jwtSecret: jwtSecret, ttl: ttl}
	for _, acc := range accounts {
		if acc.Username != "" && acc.PasswordHash != "" {
			s.accounts = append(s.accounts, acc)
		}
	}
	return s
}

// Login checks credentials and returns a JWT carrying the account's role.
func (s *AuthService) Login(_ context.Context, username, password string) (string, error) {
	for _, acc := range s.accounts {
		if acc.Username != username {
			continue
		}
		if !util.CheckPassword(password, acc.PasswordHash) {
			return "", ErrInvalidCredentials
		}
		return util.GenerateJWT(acc.Username, acc.Role, s.jwtSecret, s.ttl)
	}
	return "", ErrInvalidCredentials
}
