package store

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/obsidianstack/offpage/pkg/types"
)

// DefaultIdleTimeout is how long a session may go untouched before the
// sweep removes it.
const DefaultIdleTimeout = 30 * time.Minute

// maxIDAttempts bounds the retries on an id collision.
const maxIDAttempts = 5

var (
	// ErrSessionNotFound is returned when the referenced session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCreation is returned when no unique id could be allocated.
	ErrSessionCreation = errors.New("session creation failed")
)

// Observer is notified of session lifecycle events. Optional.
type Observer interface {
	SessionCreated()
	SessionsSwept(n int)
}

// Options configure a Store. Zero values take defaults.
type Options struct {
	IdleTimeout time.Duration
	Clock       clockwork.Clock
	Observer    Observer
}

// SessionUpdate carries the session fields a caller may change. Nil fields
// are left as they are.
type SessionUpdate struct {
	UserID   *string `json:"user_id,omitempty"`
	Language *string `json:"language,omitempty"`
}

// Store is a thread-safe in-memory session and analysis store. The session's
// AnalysisIDs list is authoritative; analyses is a flat lookup table kept
// consistent with it.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*types.Session
	analyses map[string]*types.AnalysisResult

	idle     time.Duration
	clock    clockwork.Clock
	observer Observer
	newID    func() string // injectable for collision tests
}

// New creates an empty Store.
func New(opts Options) *Store {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Store{
		sessions: make(map[string]*types.Session),
		analyses: make(map[string]*types.AnalysisResult),
		idle:     opts.IdleTimeout,
		clock:    opts.Clock,
		observer: opts.Observer,
		newID:    uuid.NewString,
	}
}

// Clock returns the clock the store measures idleness against.
func (s *Store) Clock() clockwork.Clock { return s.clock }

// IdleTimeout returns the configured idle window.
func (s *Store) IdleTimeout() time.Duration { return s.idle }

// CreateSession allocates a new session for userID, which may be empty.
func (s *Store) CreateSession(userID string) (types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.allocID(func(id string) bool { _, ok := s.sessions[id]; return ok })
	if err != nil {
		return types.Session{}, err
	}
	now := s.clock.Now()
	sess := &types.Session{
		ID:           id,
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
		AnalysisIDs:  []string{},
	}
	s.sessions[id] = sess
	if s.observer != nil {
		s.observer.SessionCreated()
	}
	slog.Debug("store: session created", "session", id)
	return copySession(sess), nil
}

// GetSession returns the session and refreshes its last activity. Reading
// a session extends its lifetime.
func (s *Store) GetSession(id string) (types.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return types.Session{}, false
	}
	sess.LastActivity = s.clock.Now()
	return copySession(sess), true
}

// UpdateSession applies u to the session and refreshes its activity.
// It reports false if the session does not exist.
func (s *Store) UpdateSession(id string, u SessionUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	if u.UserID != nil {
		sess.UserID = *u.UserID
	}
	if u.Language != nil {
		sess.Language = *u.Language
	}
	sess.LastActivity = s.clock.Now()
	return true
}

// DeleteSession removes the session and every analysis it owns.
func (s *Store) DeleteSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id)
}

func (s *Store) deleteLocked(id string) bool {
	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	for _, aid := range sess.AnalysisIDs {
		delete(s.analyses, aid)
	}
	delete(s.sessions, id)
	return true
}

// SaveAnalysis stores res under sessionID, appends it to the session's list
// and refreshes the session's activity.
func (s *Store) SaveAnalysis(sessionID string, res types.OffPageResult) (types.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return types.AnalysisResult{}, fmt.Errorf("save analysis: %w", ErrSessionNotFound)
	}
	id, err := s.allocID(func(id string) bool { _, ok := s.analyses[id]; return ok })
	if err != nil {
		return types.AnalysisResult{}, fmt.Errorf("save analysis: %w", err)
	}

	now := s.clock.Now()
	ts := res.AnalyzedAt
	if ts.IsZero() {
		ts = now
	}
	a := &types.AnalysisResult{
		ID:        id,
		SessionID: sessionID,
		URL:       res.URL,
		Timestamp: ts,
		Score:     res.Score,
		OffPage:   res,
	}
	s.analyses[id] = a
	sess.AnalysisIDs = append(sess.AnalysisIDs, id)
	sess.LastActivity = now
	return *a, nil
}

// GetAnalysis returns the analysis with the given id.
func (s *Store) GetAnalysis(id string) (types.AnalysisResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.analyses[id]
	if !ok {
		return types.AnalysisResult{}, false
	}
	return *a, true
}

// ListBySession returns the session's analyses in insertion order. Ids that
// no longer resolve are skipped. It reports false if the session does not
// exist; otherwise the session's activity is refreshed.
func (s *Store) ListBySession(sessionID string) ([]types.AnalysisResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	sess.LastActivity = s.clock.Now()
	out := make([]types.AnalysisResult, 0, len(sess.AnalysisIDs))
	for _, id := range sess.AnalysisIDs {
		if a, ok := s.analyses[id]; ok {
			out = append(out, *a)
		}
	}
	return out, true
}

// DeleteAnalysis removes the analysis and its id from the owner's list.
func (s *Store) DeleteAnalysis(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.analyses[id]
	if !ok {
		return false
	}
	delete(s.analyses, id)
	if sess, ok := s.sessions[a.SessionID]; ok {
		sess.AnalysisIDs = slices.DeleteFunc(sess.AnalysisIDs, func(x string) bool { return x == id })
	}
	return true
}

// Stats summarises the store at the current time. A session is active while
// its idle time is below the timeout; idle sessions still count towards the
// total until swept.
func (s *Store) Stats() types.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	st := types.Stats{
		TotalSessions: len(s.sessions),
		TotalAnalyses: len(s.analyses),
	}
	for _, sess := range s.sessions {
		if now.Sub(sess.LastActivity) < s.idle {
			st.ActiveSessions++
		}
	}
	if st.TotalSessions > 0 {
		avg := float64(st.TotalAnalyses) / float64(st.TotalSessions)
		st.AvgAnalysesPerSession = math.Round(avg*100) / 100
	}
	return st
}

// Sweep removes every session idle for longer than the timeout as of now,
// cascading to its analyses. It returns the number of sessions removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActivity) > s.idle {
			s.deleteLocked(id)
			removed++
		}
	}
	if removed > 0 && s.observer != nil {
		s.observer.SessionsSwept(removed)
	}
	return removed
}

// allocID draws ids until one is not taken. Callers hold s.mu.
func (s *Store) allocID(taken func(string) bool) (string, error) {
	for range maxIDAttempts {
		if id := s.newID(); id != "" && !taken(id) {
			return id, nil
		}
	}
	slog.Error("store: id allocation exhausted", "attempts", maxIDAttempts)
	return "", ErrSessionCreation
}

func copySession(s *types.Session) types.Session {
	c := *s
	c.AnalysisIDs = slices.Clone(s.AnalysisIDs)
	return c
}
