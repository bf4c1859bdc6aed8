// Package contextmgr tracks per-session conversation context: recent dialogue
// turns plus a pool of documents the session has seen. Entry counts are
// capped, and stored fields are truncated once the aggregate text outgrows
// MaxContextLen, so a long session cannot grow without limit.
package contextmgr

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"ai-teaching-be/pkg/rerank"
)

const (
	MaxTurns       = 5
	MaxPoolDocs    = 10
	MaxContextLen  = 2000 // total characters across turns and pool
	MaxQueryLen    = 200
	MaxAnswerLen   = 500
	MaxDocLen      = 300
	RelevanceFloor = 0.3

	SessionMaxAge = 24 * time.Hour
)

// Turn is one query/answer exchange.
type Turn struct {
	Query     string
	Answer    string
	Timestamp time.Time
}

// session holds one conversation's state behind its own lock, so concurrent
// requests for different sessions never contend.
type session struct {
	mu         sync.Mutex
	turns      []Turn
	docPool    []string
	lastActive time.Time
}

// Store owns all session states. The outer lock only guards the session map.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

func (s *Store) get(sessionID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &session{}
		s.sessions[sessionID] = st
	}
	return st
}

func truncate(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes])
}

// Update records a completed exchange and folds its retrieved documents into
// the session's pool.
func (s *Store) Update(sessionID, query, answer string, docs []string) {
	st := s.get(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.lastActive = s.now()
	st.turns = append(st.turns, Turn{
		Query:     query,
		Answer:    answer,
		Timestamp: st.lastActive,
	})
	if len(st.turns) > MaxTurns {
		st.turns = st.turns[len(st.turns)-MaxTurns:]
	}

	for _, doc := range docs {
		doc = strings.TrimSpace(doc)
		if doc == "" || containsDoc(st.docPool, doc) {
			continue
		}
		st.docPool = append(st.docPool, doc)
	}
	if len(st.docPool) > MaxPoolDocs {
		st.docPool = st.docPool[len(st.docPool)-MaxPoolDocs:]
	}

	st.compact()
}

func containsDoc(pool []string, doc string) bool {
	for _, d := range pool {
		if d == doc {
			return true
		}
	}
	return false
}

// compact runs after every update and is a no-op while the aggregate text
// fits under MaxContextLen. On overflow each stored field is truncated to
// its cap. Turn and pool counts are bounded separately; compaction never
// evicts entries.
func (st *session) compact() {
	if st.totalLen() <= MaxContextLen {
		return
	}
	for i := range st.turns {
		st.turns[i].Query = truncate(st.turns[i].Query, MaxQueryLen)
		st.turns[i].Answer = truncate(st.turns[i].Answer, MaxAnswerLen)
	}
	for i := range st.docPool {
		st.docPool[i] = truncate(st.docPool[i], MaxDocLen)
	}
}

func (st *session) totalLen() int {
	total := 0
	for _, turn := range st.turns {
		total += utf8.RuneCountInString(turn.Query) + utf8.RuneCountInString(turn.Answer)
	}
	for _, doc := range st.docPool {
		total += utf8.RuneCountInString(doc)
	}
	return total
}

// History returns the session's stored turns, oldest first.
func (s *Store) History(sessionID string) []Turn {
	st := s.get(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]Turn, len(st.turns))
	copy(out, st.turns)
	return out
}

// coverage is the share of query tokens present in text, the same overlap
// formula keyword search uses.
func coverage(queryTokens map[string]struct{}, text string) float64 {
	textTokens := rerank.TokenSet(text)
	overlap := 0
	for tok := range queryTokens {
		if _, ok := textTokens[tok]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryTokens))
}

// RelevantDocs returns pool documents whose token coverage of the query
// reaches the relevance floor.
func (s *Store) RelevantDocs(sessionID, query string) []string {
	queryTokens := rerank.TokenSet(query)
	if len(queryTokens) == 0 {
		return nil
	}

	st := s.get(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	var relevant []string
	for _, doc := range st.docPool {
		if coverage(queryTokens, doc) > RelevanceFloor {
			relevant = append(relevant, doc)
		}
	}
	return relevant
}

// RelevantHistory returns the turns whose stored query shares enough tokens
// with the current query. An empty query returns the full history. The
// filtering is a transient view; stored turns are untouched.
func (s *Store) RelevantHistory(sessionID, query string) []Turn {
	queryTokens := rerank.TokenSet(query)
	if len(queryTokens) == 0 {
		return s.History(sessionID)
	}

	st := s.get(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	var relevant []Turn
	for _, turn := range st.turns {
		if coverage(queryTokens, turn.Query) > RelevanceFloor {
			relevant = append(relevant, turn)
		}
	}
	return relevant
}

// Clear removes one session's context.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Cleanup drops sessions idle past maxAge and returns how many were removed.
func (s *Store) Cleanup(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, st := range s.sessions {
		st.mu.Lock()
		idle := st.lastActive.Before(cutoff)
		st.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartCleanupLoop sweeps expired sessions until stop is closed.
func (s *Store) StartCleanupLoop(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Cleanup(SessionMaxAge)
			case <-stop:
				return
			}
		}
	}()
}
