package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/tour-guide-service/internal/models"
)

// MemcachedStore shares sessions across instances through memcached.
type MemcachedStore struct {
	client *memcache.Client
	ttl    time.Duration
}

// NewMemcachedStore returns a store for addrs, a comma-separated list such as
// "host1:11211,host2:11211". timeout and maxIdleConns keep client defaults when zero.
func NewMemcachedStore(addrs string, ttl, timeout time.Duration, maxIdleConns int) *MemcachedStore {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemcachedStore{client: client, ttl: ttl}
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (m *MemcachedStore) Load(ctx context.Context, id string) (*models.Session, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	item, err := m.client.Get(keyPrefix + id)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	s, err := decode(item.Value)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (m *MemcachedStore) Save(ctx context.Context, s *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := encode(s)
	if err != nil {
		return err
	}
	return m.client.Set(&memcache.Item{
		Key:        keyPrefix + s.ID,
		Value:      raw,
		Expiration: int32(m.ttl.Seconds()),
	})
}

func (m *MemcachedStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := m.client.Delete(keyPrefix + id)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}

// Ping checks that every configured server answers.
func (m *MemcachedStore) Ping() error {
	return m.client.Ping()
}

// Close releases idle connections.
func (m *MemcachedStore) Close() error {
	return m.client.Close()
}
