// Package session tracks per-viewer discovery state: the list backing the
// current view and named snapshot slots used to restore it on back
// navigation.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/louisbranch/topicfeed/internal/platform/id"
	"github.com/louisbranch/topicfeed/internal/services/discovery/domain"
)

// SlotTopicList holds the most recent topic list snapshot.
const SlotTopicList = "topicList"

// ErrNotFound indicates an unknown session ID.
var ErrNotFound = errors.New("session not found")

// Session is one viewer's discovery state.
type Session struct {
	id       string
	lastSeen atomic.Int64

	mu     sync.Mutex
	active *domain.CategoryList
	slots  map[string]*domain.CategoryList
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// SetActive installs list as the session's current view and discards the
// list it replaces.
func (s *Session) SetActive(list *domain.CategoryList) {
	s.mu.Lock()
	previous := s.active
	s.active = list
	s.mu.Unlock()
	if previous != nil && previous != list {
		previous.Discard()
	}
}

// Active returns the session's current view, if any.
func (s *Session) Active() *domain.CategoryList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Set overwrites slot with list. The list is stored by reference.
func (s *Session) Set(slot string, list *domain.CategoryList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot] = list
}

// Get returns the list stored in slot.
func (s *Session) Get(slot string) (*domain.CategoryList, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.slots[slot]
	return list, ok && list != nil
}

// Store holds live sessions in memory. A session that has not been resumed
// for longer than the idle TTL ends: its lists are discarded and the release
// hook runs with its ID.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	newID    func() (string, error)
	idleTTL  time.Duration
	now      func() time.Time
	release  func(sessionID string)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIdleTTL sets how long an unused session lives. Non-positive values keep
// DefaultTTL.
func WithIdleTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.idleTTL = ttl
		}
	}
}

// WithClock overrides the store's time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRelease registers fn to run after a session ends.
func WithRelease(fn func(sessionID string)) StoreOption {
	return func(s *Store) {
		s.release = fn
	}
}

// NewStore returns an empty store issuing IDs from platform/id.
func NewStore(opts ...StoreOption) *Store {
	store := &Store{
		sessions: make(map[string]*Session),
		newID:    id.NewID,
		idleTTL:  DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Create starts a new session.
func (s *Store) Create() (*Session, error) {
	sessionID, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	session := &Session{id: sessionID, slots: make(map[string]*domain.CategoryList)}
	session.lastSeen.Store(s.now().UnixNano())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session
	return session, nil
}

// Get returns the live session with sessionID and marks it as seen. An
// expired session ends and is reported as missing.
func (s *Store) Get(sessionID string) (*Session, bool) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, false
	}
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(session, now) {
		s.remove(sessionID, session)
		return nil, false
	}
	session.lastSeen.Store(now.UnixNano())
	return session, true
}

// Resume returns the session with sessionID, or a new session when it is
// unknown or expired. created reports which happened.
func (s *Store) Resume(sessionID string) (session *Session, created bool, err error) {
	if existing, ok := s.Get(sessionID); ok {
		return existing, false, nil
	}
	session, err = s.Create()
	if err != nil {
		return nil, false, err
	}
	return session, true, nil
}

// SetSlot stores list in the named slot of sessionID.
func (s *Store) SetSlot(sessionID, slot string, list *domain.CategoryList) error {
	session, ok := s.Get(sessionID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, sessionID)
	}
	session.Set(slot, list)
	return nil
}

// Delete ends a session.
func (s *Store) Delete(sessionID string) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		s.remove(sessionID, session)
	}
}

// Sweep ends every expired session and returns how many ended.
func (s *Store) Sweep() int {
	now := s.now()
	var expired []*Session
	s.mu.Lock()
	for sessionID, session := range s.sessions {
		if s.expired(session, now) {
			delete(s.sessions, sessionID)
			expired = append(expired, session)
		}
	}
	s.mu.Unlock()
	for _, session := range expired {
		s.end(session)
	}
	return len(expired)
}

// Len returns the number of sessions held, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) expired(session *Session, now time.Time) bool {
	return now.Sub(time.Unix(0, session.lastSeen.Load())) > s.idleTTL
}

// remove ends session if it is still the one stored under sessionID.
func (s *Store) remove(sessionID string, session *Session) {
	s.mu.Lock()
	current, ok := s.sessions[sessionID]
	if ok && current == session {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if ok && current == session {
		s.end(session)
	}
}

func (s *Store) end(session *Session) {
	session.SetActive(nil)
	session.mu.Lock()
	session.slots = make(map[string]*domain.CategoryList)
	session.mu.Unlock()
	if s.release != nil {
		s.release(session.id)
	}
}
