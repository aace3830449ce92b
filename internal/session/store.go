// Package session keeps per-visitor state behind a pluggable store.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kjstillabower/tour-guide-service/internal/models"
)

// Backend names accepted by New.
const (
	BackendInMemory  = "in_memory"
	BackendMemcached = "memcached"
	BackendRedis     = "redis"
)

const keyPrefix = "session:"

// Store persists sessions by id. Load returns found=false, err=nil on a miss.
type Store interface {
	Load(ctx context.Context, id string) (*models.Session, bool, error)
	Save(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id string) error
}

// Options selects and tunes a store.
type Options struct {
	Backend string
	TTL     time.Duration
	// MemcachedAddrs is a comma-separated server list.
	MemcachedAddrs   string
	MemcachedTimeout time.Duration
	MaxIdleConns     int
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

// New builds the store named by opts.Backend. Empty selects in_memory.
func New(opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendInMemory:
		return NewMemoryStore(opts.TTL), nil
	case BackendMemcached:
		return NewMemcachedStore(opts.MemcachedAddrs, opts.TTL, opts.MemcachedTimeout, opts.MaxIdleConns), nil
	case BackendRedis:
		return NewRedisStore(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.TTL)
	default:
		return nil, fmt.Errorf("unknown session backend %q", opts.Backend)
	}
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like one NewID produced. Anything else in a cookie is ignored.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

func encode(s *models.Session) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (*models.Session, error) {
	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Ping checks reachability of stores that talk to a server. In-process stores always pass.
func Ping(ctx context.Context, s Store) error {
	switch p := s.(type) {
	case interface{ Ping(context.Context) error }:
		return p.Ping(ctx)
	case interface{ Ping() error }:
		return p.Ping()
	default:
		return nil
	}
}

// Close releases the store's connections when it holds any.
func Close(s Store) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
