package notifier

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/aleister1102/imgsync/internal/common"
)

// HandleStore persists {shortcode: message id} for one backend as a JSON
// object. Every mutation rewrites the file atomically. One process per
// file is assumed.
type HandleStore struct {
	mu      sync.RWMutex
	path    string
	handles map[string]string
}

// OpenHandleStore loads path, treating a missing or empty file as no handles
func OpenHandleStore(path string) (*HandleStore, error) {
	s := &HandleStore{path: path, handles: map[string]string{}}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, common.NewLocalResourceError("open handles", path, err)
	}

	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.handles); err != nil {
		return nil, common.WrapErrorf(err, "parsing handle file %s", path)
	}
	if s.handles == nil {
		s.handles = map[string]string{}
	}
	return s, nil
}

// Get returns the message id recorded for shortcode
func (s *HandleStore) Get(shortcode string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.handles[shortcode]
	return id, ok
}

// Put records id for shortcode and saves
func (s *HandleStore) Put(shortcode, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles[shortcode] = id
	return s.saveLocked()
}

// Remove forgets shortcode and saves. Removing an unknown shortcode is a no-op.
func (s *HandleStore) Remove(shortcode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handles[shortcode]; !ok {
		return nil
	}
	delete(s.handles, shortcode)
	return s.saveLocked()
}

// Len is the number of recorded handles
func (s *HandleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handles)
}

func (s *HandleStore) saveLocked() error {
	data, err := json.MarshalIndent(s.handles, "", "  ")
	if err != nil {
		return common.WrapError(err, "encoding handles")
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return common.NewLocalResourceError("save handles", s.path, err)
		}
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return common.NewLocalResourceError("save handles", s.path, err)
	}
	return nil
}
