package staging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type entry struct {
	payload   []byte
	createdAt time.Time
}

// MemoryStore is a process-local Store. Expired entries are purged every
// minute once Start has been called.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	log     *zap.Logger
	cron    *cron.Cron
}

func NewMemoryStore(ttl time.Duration, log *zap.Logger) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MemoryStore{
		entries: map[string]entry{},
		ttl:     ttl,
		now:     time.Now,
		log:     log,
	}
}

// Start schedules the purge job.
func (s *MemoryStore) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc("@every 1m", func() { s.Purge() }); err != nil {
		return fmt.Errorf("schedule staging purge: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the purge job and waits for a running purge to finish.
func (s *MemoryStore) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *MemoryStore) Put(_ context.Context, kind Kind, payload []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()

	for attempt := 0; attempt < 10; attempt++ {
		code, err := newCode()
		if err != nil {
			return "", err
		}
		key := storeKey(kind, code)
		if _, taken := s.entries[key]; taken {
			continue
		}
		s.entries[key] = entry{payload: payload, createdAt: s.now()}
		return code, nil
	}
	return "", fmt.Errorf("no free staging code after 10 attempts")
}

func (s *MemoryStore) Take(_ context.Context, kind Kind, code string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(kind, code)
	e, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.entries, key)
	if s.expired(e) {
		return nil, ErrNotFound
	}
	return e.payload, nil
}

// Purge drops expired entries and returns how many were dropped.
func (s *MemoryStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.purgeLocked()
	if n > 0 {
		s.log.Debug("purged staged payloads", zap.Int("count", n))
	}
	return n
}

func (s *MemoryStore) purgeLocked() int {
	n := 0
	for key, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, key)
			n++
		}
	}
	return n
}

func (s *MemoryStore) expired(e entry) bool {
	return s.now().Sub(e.createdAt) > s.ttl
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
