// Package session holds unlocked survey DEKs in memory, scoped to a user and
// bounded by a TTL. Nothing here is ever persisted: a process restart locks
// every survey, which is the intended failure mode.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
)

// Store is the unlock-session contract used by the usecases.
type Store interface {
	Put(userID, surveyID uuid.UUID, dek []byte, ttl time.Duration)
	Get(userID, surveyID uuid.UUID) ([]byte, bool)
	Purge(userID, surveyID uuid.UUID)
	PurgeUser(userID uuid.UUID)
	Close()
}

type sessionKey struct {
	userID   uuid.UUID
	surveyID uuid.UUID
}

type entry struct {
	dek       []byte
	expiresAt time.Time
}

// MemoryStore implements Store with an RWMutex-guarded map.
//
// DEKs are copied on Put and on Get so callers never alias stored key
// material; the store zeroizes its own copy on every eviction path. Expiry is
// enforced lazily on Get and proactively by a background sweeper.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[sessionKey]entry

	logger *slog.Logger
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewMemoryStore creates a MemoryStore and starts its sweeper. A
// non-positive sweepInterval disables the sweeper; lazy expiry on Get still
// applies.
func NewMemoryStore(sweepInterval time.Duration, logger *slog.Logger) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[sessionKey]entry),
		logger:   logger,
		done:     make(chan struct{}),
	}

	if sweepInterval > 0 {
		s.wg.Add(1)
		go s.sweepLoop(sweepInterval)
	}

	return s
}

// Put stores a copy of the DEK for the (user, survey) pair. An existing
// session for the pair is zeroized and replaced, and its TTL restarts.
func (s *MemoryStore) Put(userID, surveyID uuid.UUID, dek []byte, ttl time.Duration) {
	dekCopy := make([]byte, len(dek))
	copy(dekCopy, dek)

	key := sessionKey{userID: userID, surveyID: surveyID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.sessions[key]; ok {
		keysDomain.Zero(old.dek)
	}
	s.sessions[key] = entry{
		dek:       dekCopy,
		expiresAt: time.Now().Add(ttl),
	}
}

// Get returns a copy of the DEK for the (user, survey) pair, or false when no
// live session exists. An expired entry found here is evicted immediately.
func (s *MemoryStore) Get(userID, surveyID uuid.UUID) ([]byte, bool) {
	key := sessionKey{userID: userID, surveyID: surveyID}

	s.mu.RLock()
	e, ok := s.sessions[key]
	expired := ok && time.Now().After(e.expiresAt)
	var dekCopy []byte
	if ok && !expired {
		dekCopy = make([]byte, len(e.dek))
		copy(dekCopy, e.dek)
	}
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if expired {
		s.evict(key)
		return nil, false
	}
	return dekCopy, true
}

// Purge removes one session, zeroizing the stored DEK. Purging a pair with no
// session is a no-op.
func (s *MemoryStore) Purge(userID, surveyID uuid.UUID) {
	s.evict(sessionKey{userID: userID, surveyID: surveyID})
}

// PurgeUser removes every session held by the user, across all surveys.
func (s *MemoryStore) PurgeUser(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.sessions {
		if key.userID == userID {
			keysDomain.Zero(e.dek)
			delete(s.sessions, key)
		}
	}
}

// Close stops the sweeper and zeroizes every remaining session. Safe to call
// more than once.
func (s *MemoryStore) Close() {
	s.once.Do(func() {
		close(s.done)
	})
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.sessions {
		keysDomain.Zero(e.dek)
		delete(s.sessions, key)
	}
}

func (s *MemoryStore) evict(key sessionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[key]; ok {
		keysDomain.Zero(e.dek)
		delete(s.sessions, key)
	}
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep evicts every expired session in one pass.
func (s *MemoryStore) sweep() {
	now := time.Now()

	s.mu.Lock()
	swept := 0
	for key, e := range s.sessions {
		if now.After(e.expiresAt) {
			keysDomain.Zero(e.dek)
			delete(s.sessions, key)
			swept++
		}
	}
	s.mu.Unlock()

	if swept > 0 && s.logger != nil {
		s.logger.Debug("expired unlock sessions swept", "count", swept)
	}
}
