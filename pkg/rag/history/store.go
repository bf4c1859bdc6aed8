// Package history persists dialogue records as per-session JSON files so a
// conversation survives process restarts. Each session keeps at most
// MaxDialogues records; older ones are pruned on write.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const MaxDialogues = 10

// Record is one persisted exchange.
type Record struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	UserType  string    `json:"user_type"` // "teacher" or "student"
	Task      string    `json:"task"`      // qa, chat, exercise, outline
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// Store reads and writes dialogue files under basePath.
type Store struct {
	basePath     string
	maxDialogues int
	mu           sync.Mutex
}

func NewStore(basePath string) *Store {
	return &Store{
		basePath:     basePath,
		maxDialogues: MaxDialogues,
	}
}

func userTypeDir(isTeacher bool) string {
	if isTeacher {
		return "Teachers"
	}
	return "Students"
}

func (s *Store) sessionDir(userID, sessionID string, isTeacher bool) string {
	return filepath.Join(s.basePath, userTypeDir(isTeacher), userID, "dialogue", sessionID)
}

// Save writes the record and prunes the session down to the newest
// maxDialogues files.
func (s *Store) Save(rec Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	dir := s.sessionDir(rec.UserID, rec.SessionID, rec.UserType == "teacher")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dialogue dir: %w", err)
	}

	name := fmt.Sprintf("dialogue_%s_%s.json",
		rec.Timestamp.Format("20060102_150405"),
		uuid.New().String()[:8],
	)
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write dialogue file: %w", err)
	}

	s.prune(dir)
	return path, nil
}

// dialogueFiles lists the session's record files, newest first.
func dialogueFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	var files []fileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "dialogue_") || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].modTime.Equal(files[j].modTime) {
			return files[i].modTime.After(files[j].modTime)
		}
		return files[i].path > files[j].path
	})

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths
}

func (s *Store) prune(dir string) {
	files := dialogueFiles(dir)
	for _, old := range files[min(len(files), s.maxDialogues):] {
		os.Remove(old)
	}
}

// List returns up to limit records, newest first. Unreadable files are
// skipped.
func (s *Store) List(userID, sessionID string, isTeacher bool, limit int) ([]Record, error) {
	if limit <= 0 || limit > s.maxDialogues {
		limit = s.maxDialogues
	}

	dir := s.sessionDir(userID, sessionID, isTeacher)
	files := dialogueFiles(dir)
	if len(files) > limit {
		files = files[:limit]
	}

	records := make([]Record, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Sessions lists a user's session IDs.
func (s *Store) Sessions(userID string, isTeacher bool) ([]string, error) {
	dir := filepath.Join(s.basePath, userTypeDir(isTeacher), userID, "dialogue")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var sessions []string
	for _, entry := range entries {
		if entry.IsDir() {
			sessions = append(sessions, entry.Name())
		}
	}
	return sessions, nil
}

// Clear deletes all records for the session and reports how many were
// removed.
func (s *Store) Clear(userID, sessionID string, isTeacher bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.sessionDir(userID, sessionID, isTeacher)
	files := dialogueFiles(dir)

	deleted := 0
	for _, path := range files {
		if err := os.Remove(path); err == nil {
			deleted++
		}
	}
	return deleted, nil
}
