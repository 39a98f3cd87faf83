// Package session keeps the server side half of a login. Each issued token
// jti maps to a Redis key holding the owner's user id; logout deletes it.
package session

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/swiftpdv/pdv-backend/pkg/config"
	"github.com/swiftpdv/pdv-backend/pkg/redis"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	errBlankAccessID   = errors.New("session: access id is blank")
)

// kv is the slice of the redis client a session needs.
type kv interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	SessionKey(accessID string) string
}

// AccessSessionChecker is what the auth middleware depends on.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type Manager struct {
	kv  kv
	ttl time.Duration
}

// NewManager ties session lifetime to the token TTL.
func NewManager(client *redis.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("session: redis client is required")
	}
	return &Manager{kv: client, ttl: cfg.TTL()}, nil
}

// NewAccessID returns a fresh id for the token jti and the session key.
func NewAccessID() string { return uuid.NewString() }

func (m *Manager) key(accessID string) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errBlankAccessID
	}
	return m.kv.SessionKey(accessID), nil
}

func (m *Manager) Create(ctx context.Context, accessID string, userID uint) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	if userID == 0 {
		return errors.New("session: user id is zero")
	}
	return m.kv.Set(ctx, key, strconv.FormatUint(uint64(userID), 10), m.ttl)
}

// Owner reads back the user id, or ErrSessionNotFound once the session is gone.
func (m *Manager) Owner(ctx context.Context, accessID string) (uint, error) {
	key, err := m.key(accessID)
	if err != nil {
		return 0, ErrSessionNotFound
	}
	raw, err := m.kv.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.New("session: stored owner is not a number")
	}
	return uint(id), nil
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errBlankAccessID
	}
	_, err := m.Owner(ctx, accessID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrSessionNotFound):
		return false, nil
	}
	return false, err
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	return m.kv.Del(ctx, key)
}
