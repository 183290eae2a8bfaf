package stability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"signalengine/src/model"
)

// FileStore keeps all states in one JSON document, rewritten atomically
// (temp file in the same directory, fsync, rename).
type FileStore struct {
	path string

	mu     sync.Mutex
	states map[string]model.StabilityState
	loaded bool
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, states: make(map[string]model.StabilityState)}
}

func fileKey(symbol, timeframe string) string {
	return symbol + "|" + timeframe
}

func (s *FileStore) LoadAll(_ context.Context) ([]model.StabilityState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}
	out := make([]model.StabilityState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		return fileKey(out[i].Symbol, out[i].Timeframe) < fileKey(out[j].Symbol, out[j].Timeframe)
	})
	return out, nil
}

func (s *FileStore) Upsert(_ context.Context, states ...model.StabilityState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if err := s.load(); err != nil {
			return err
		}
	}
	next := make(map[string]model.StabilityState, len(s.states)+len(states))
	for k, v := range s.states {
		next[k] = v
	}
	for _, st := range states {
		next[fileKey(st.Symbol, st.Timeframe)] = st
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.states = next
	return nil
}

func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read stability file: %w", err)
	}

	var doc []model.StabilityState
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode stability file: %w", err)
		}
	}
	s.states = make(map[string]model.StabilityState, len(doc))
	for _, st := range doc {
		s.states[fileKey(st.Symbol, st.Timeframe)] = st
	}
	s.loaded = true
	return nil
}

func (s *FileStore) write(states map[string]model.StabilityState) error {
	doc := make([]model.StabilityState, 0, len(states))
	for _, st := range states {
		doc = append(doc, st)
	}
	sort.Slice(doc, func(i, j int) bool {
		return fileKey(doc[i].Symbol, doc[i].Timeframe) < fileKey(doc[j].Symbol, doc[j].Timeframe)
	})
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}
