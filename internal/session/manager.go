package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heyoon/twinchat/internal/compose"
	"github.com/heyoon/twinchat/internal/memory"
)

var ErrNotFound = errors.New("session not found")

// Session owns one conversation: its short-term memory, its sticky language,
// and the cached conversation construct. The registry is the sole owner; a
// Session never outlives its registry entry.
type Session struct {
	ID             string
	Language       string
	Memory         *memory.Transcript
	Construct      *compose.Construct
	CreatedAt      time.Time
	LastActivityAt time.Time

	// mu serializes whole requests for this session key so turn appends stay
	// exactly-once and in order. Held for the read-assemble-write span of one
	// request, including collaborator calls; it is per-session, so other
	// sessions proceed unhindered.
	mu sync.Mutex
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// SetLanguage applies a sticky language update: only a confident detection
// replaces the current value.
func (s *Session) SetLanguage(lang string, confident bool) {
	if s.Language == "" {
		s.Language = lang
		return
	}
	if confident {
		s.Language = lang
	}
}

// Touch refreshes the last-activity timestamp.
func (s *Session) Touch() {
	s.LastActivityAt = time.Now().UTC()
}

// Manager is the session registry. Lookup is idempotent: the same key yields
// the same Session until expiry or deletion.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxIdle  time.Duration
}

func NewManager(maxIdle time.Duration) *Manager {
	if maxIdle <= 0 {
		maxIdle = 24 * time.Hour
	}
	return &Manager{
		sessions: make(map[string]*Session),
		maxIdle:  maxIdle,
	}
}

// GetOrCreate returns the Session for key, creating it lazily. An empty key
// gets a generated one. The second result reports whether a new session was
// created.
func (m *Manager) GetOrCreate(key string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if key != "" {
		if s, ok := m.sessions[key]; ok {
			return s, false
		}
	} else {
		key = uuid.NewString()
	}

	// Language starts empty; the first detection seeds it via SetLanguage.
	now := time.Now().UTC()
	s := &Session{
		ID:             key,
		Memory:         memory.NewTranscript(),
		CreatedAt:      now,
		LastActivityAt: now,
	}
	m.sessions[key] = s
	return s, true
}

// Get returns an existing session.
func (m *Manager) Get(key string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete removes a session outright.
func (m *Manager) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[key]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, key)
	return nil
}

// Count reports the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ExpireIdle sweeps out sessions whose last activity is older than maxAge and
// returns how many were removed. The sweep is pull-based: nothing expires
// unless a caller (or the janitor) runs it.
func (m *Manager) ExpireIdle(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = m.maxIdle
	}
	cutoff := time.Now().UTC().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, s := range m.sessions {
		if s.LastActivityAt.Before(cutoff) {
			delete(m.sessions, key)
			removed++
		}
	}
	return removed
}

// StartJanitor runs the idle sweep on a fixed interval until ctx is done.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.ExpireIdle(m.maxIdle)
			}
		}
	}()
}
