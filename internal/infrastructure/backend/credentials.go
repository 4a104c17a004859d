package backend

import (
	"context"
	"errors"
	"os"
	"strings"
)

// ErrNotAuthenticated is returned when no session token is available.
var ErrNotAuthenticated = errors.New("not authenticated")

// StaticCredentials serves a fixed session token.
type StaticCredentials struct {
	token string
}

func NewStaticCredentials(token string) *StaticCredentials {
	return &StaticCredentials{token: strings.TrimSpace(token)}
}

// NewEnvCredentials reads the token from the environment variable name.
func NewEnvCredentials(name string) *StaticCredentials {
	return NewStaticCredentials(os.Getenv(name))
}

func (s *StaticCredentials) Token(context.Context) (string, error) {
	if s.token == "" {
		return "", ErrNotAuthenticated
	}
	return s.token, nil
}
