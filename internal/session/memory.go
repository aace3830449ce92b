package session

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/kjstillabower/tour-guide-service/internal/models"
)

// DefaultTTL applies when a store is built with a zero TTL.
const DefaultTTL = 30 * time.Minute

// MemoryStore keeps encoded sessions in process memory with sliding expiry.
type MemoryStore struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{cache: gocache.New(ttl, 2*ttl), ttl: ttl}
}

// Load returns a private copy so callers never share transcript slices.
func (m *MemoryStore) Load(ctx context.Context, id string) (*models.Session, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	v, ok := m.cache.Get(keyPrefix + id)
	if !ok {
		return nil, false, nil
	}
	raw, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	s, err := decode(raw)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (m *MemoryStore) Save(ctx context.Context, s *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := encode(s)
	if err != nil {
		return err
	}
	m.cache.Set(keyPrefix+s.ID, raw, m.ttl)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.cache.Delete(keyPrefix + id)
	return nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	return m.cache.ItemCount()
}
