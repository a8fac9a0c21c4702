package session

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"railquiz/internal/content"
	"railquiz/internal/game"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrStoreClosed  = errors.New("session store closed")
	joinCodeLetters = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
)

const joinCodeLen = 6

// Store owns the live sessions of one server process. Sessions are
// in-memory only; a stale session is reaped, not persisted.
type Store struct {
	provider    content.Provider
	cfg         Config
	clock       clockwork.Clock
	broadcaster Broadcaster
	sink        EventSink
	logger      zerolog.Logger

	mu         sync.RWMutex
	sessions   map[string]*Session
	byJoinCode map[string]*Session
	closed     bool

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// NewStore builds a store. broadcaster and sink may be nil.
func NewStore(provider content.Provider, cfg Config, clock clockwork.Clock, b Broadcaster, sink EventSink, logger zerolog.Logger) *Store {
	return &Store{
		provider:    provider,
		cfg:         cfg,
		clock:       clock,
		broadcaster: b,
		sink:        sink,
		logger:      logger,
		sessions:    make(map[string]*Session),
		byJoinCode:  make(map[string]*Session),
		stopCleanup: make(chan struct{}),
	}
}

// CreateSession builds a fresh lobby with its host already seated.
func (st *Store) CreateSession(hostName string) (*Session, error) {
	dests := st.provider.Destinations()
	if len(dests) == 0 {
		return nil, errors.New("content provider has no destinations")
	}
	if hostName == "" {
		hostName = "Host"
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return nil, ErrStoreClosed
	}

	sessionID := uuid.NewString()
	code, err := st.uniqueJoinCode()
	if err != nil {
		return nil, err
	}

	state := game.NewState(sessionID, code)
	hostID := uuid.NewString()
	state.Players = append(state.Players, &game.Player{
		PlayerID:   hostID,
		Name:       hostName,
		Role:       game.RoleHost,
		JoinedAtMs: st.clock.Now().UnixMilli(),
	})

	sess := New(state, dests, hostID, st.cfg, st.clock, st.broadcaster, st.sink, st.logger)
	st.sessions[sessionID] = sess
	st.byJoinCode[code] = sess

	st.logger.Info().
		Str("session_id", sessionID).
		Str("join_code", code).
		Msg("session created")
	return sess, nil
}

// Get finds a session by id.
func (st *Store) Get(sessionID string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// GetByJoinCode finds a session by its lobby code.
func (st *Store) GetByJoinCode(code string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.byJoinCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete closes and removes one session.
func (st *Store) Delete(sessionID string) {
	st.mu.Lock()
	sess, ok := st.sessions[sessionID]
	if ok {
		delete(st.sessions, sessionID)
		delete(st.byJoinCode, sess.JoinCode())
	}
	st.mu.Unlock()
	if ok {
		sess.Close()
		st.logger.Info().Str("session_id", sessionID).Msg("session deleted")
	}
}

// Count reports how many sessions are live.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// StartCleanup reaps sessions that have been idle past maxAge with no
// connected players. Runs until Close.
func (st *Store) StartCleanup(interval, maxAge time.Duration) {
	go func() {
		ticker := st.clock.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-st.stopCleanup:
				return
			case <-ticker.Chan():
				st.reapStale(maxAge)
			}
		}
	}()
}

func (st *Store) reapStale(maxAge time.Duration) {
	cutoff := st.clock.Now().Add(-maxAge)
	st.mu.RLock()
	var stale []*Session
	for _, sess := range st.sessions {
		if sess.CreatedAt().Before(cutoff) && sess.ConnectedPlayers() == 0 {
			stale = append(stale, sess)
		}
	}
	st.mu.RUnlock()
	for _, sess := range stale {
		st.logger.Info().Str("session_id", sess.ID()).Msg("reaping stale session")
		st.Delete(sess.ID())
	}
}

// Close stops the cleanup loop and closes every session.
func (st *Store) Close() {
	st.cleanupOnce.Do(func() { close(st.stopCleanup) })
	st.mu.Lock()
	st.closed = true
	sessions := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		sessions = append(sessions, s)
	}
	st.sessions = make(map[string]*Session)
	st.byJoinCode = make(map[string]*Session)
	st.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// uniqueJoinCode draws codes until one is free. Caller holds the lock.
func (st *Store) uniqueJoinCode() (string, error) {
	for attempt := 0; attempt < 32; attempt++ {
		code, err := randomJoinCode()
		if err != nil {
			return "", err
		}
		if _, taken := st.byJoinCode[code]; !taken {
			return code, nil
		}
	}
	return "", errors.New("join code space exhausted")
}

func randomJoinCode() (string, error) {
	buf := make([]byte, joinCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = joinCodeLetters[int(b)%len(joinCodeLetters)]
	}
	return string(buf), nil
}
