// Package session persists chat sessions as JSON files with an in-memory
// index for lookups.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound reports a lookup for a session id the store does not hold.
var ErrNotFound = errors.New("session not found")

// Message is one turn of conversation history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ModelConfig captures the generation parameters a session runs with.
type ModelConfig struct {
	Provider          string   `json:"provider,omitempty"`
	Model             string   `json:"model,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
	MaxTokens         int      `json:"max_tokens,omitempty"`
	SystemInstruction string   `json:"system_instruction,omitempty"`
}

// DeepThinkConfig captures the session's pipeline knobs.
type DeepThinkConfig struct {
	Enabled         bool `json:"enabled"`
	MaxSubtasks     int  `json:"max_subtasks,omitempty"`
	MaxParallel     int  `json:"max_parallel,omitempty"`
	EnableReview    bool `json:"enable_review"`
	EnableWebSearch bool `json:"enable_web_search"`
}

// State is one persisted session.
type State struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	History   []Message       `json:"history"`
	Model     ModelConfig     `json:"model"`
	DeepThink DeepThinkConfig `json:"deep_think"`
}

// AppendMessage adds a turn to the history and touches the timestamp.
func (s *State) AppendMessage(role, content string) {
	now := time.Now().UTC()
	s.History = append(s.History, Message{Role: role, Content: content, Timestamp: now})
	s.UpdatedAt = now
}

// clone deep-copies the state. The store hands out and keeps only clones, so
// a caller mutating its copy never races another caller or the index.
func (s *State) clone() *State {
	cp := *s
	cp.History = append([]Message(nil), s.History...)
	return &cp
}

// Store keeps sessions on disk, one JSON file per session, and an index of
// loaded states in memory. Safe for concurrent use.
type Store struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	index map[string]*State
}

// NewStore opens (creating if needed) a store rooted at dir and indexes the
// session files already present. Files that fail to decode are skipped with
// a warning rather than failing the whole store.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	s := &Store{dir: dir, logger: logger, index: map[string]*State{}}
	if err := s.loadAll(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) loadAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read session dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		st, err := s.readFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable session file", "file", e.Name(), "error", err)
			continue
		}
		s.index[st.ID] = st
	}
	return nil
}

func (s *Store) readFile(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if st.ID == "" {
		return nil, errors.New("session file has no id")
	}
	return &st, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Create makes a new session with a fresh id and persists it.
func (s *Store) Create() (*State, error) {
	now := time.Now().UTC()
	st := &State{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		History:   []Message{},
	}
	if err := s.Save(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Save writes the session to disk and stores a copy in the index. The file
// is written to a temp name first so a crash never leaves a torn session on
// disk.
func (s *Store) Save(st *State) error {
	if st.ID == "" {
		return errors.New("session has no id")
	}
	st.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp := s.path(st.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path(st.ID)); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	s.mu.Lock()
	s.index[st.ID] = st.clone()
	s.mu.Unlock()
	return nil
}

// Load returns a copy of the session with id, from the index when possible
// and from disk otherwise. Callers own the copy; changes reach the store
// only through Save.
func (s *Store) Load(id string) (*State, error) {
	s.mu.RLock()
	st, ok := s.index[id]
	if ok {
		cp := st.clone()
		s.mu.RUnlock()
		return cp, nil
	}
	s.mu.RUnlock()
	st, err := s.readFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.mu.Lock()
	s.index[id] = st
	s.mu.Unlock()
	return st.clone(), nil
}

// GetOrCreate loads the session with id, creating a fresh one when absent.
func (s *Store) GetOrCreate(id string) (*State, error) {
	if id == "" {
		return s.Create()
	}
	st, err := s.Load(id)
	if errors.Is(err, ErrNotFound) {
		return s.Create()
	}
	return st, err
}

// Delete removes the session from the index and disk.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.index[id]
	delete(s.index, id)
	s.mu.Unlock()
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		if !ok {
			return ErrNotFound
		}
		return nil
	}
	return err
}

// List returns copies of all indexed sessions, most recently updated first.
func (s *Store) List() []*State {
	s.mu.RLock()
	out := make([]*State, 0, len(s.index))
	for _, st := range s.index {
		out = append(out, st.clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}
