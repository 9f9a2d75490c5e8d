// Package settings persists host UI state in a JSON document.
//
// Keys are flat strings that may contain dots (for example
// "informationview.memento"); each key is one top-level member of the
// document. Keys written by other tools are preserved on save.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrCorrupt is returned by Open when the file is not a JSON object.
var ErrCorrupt = errors.New("settings file is not a JSON object")

// Store is a JSON key-value document backed by a file.
type Store struct {
	path string

	mu    sync.RWMutex
	doc   string
	dirty bool
}

// Open reads the document at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, doc: "{}"}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, path)
	}
	s.doc = string(data)
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Lookup returns the value stored under key, decoded to bool, float64,
// string, nil, []any or map[string]any.
func (s *Store) Lookup(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := gjson.Get(s.doc, escapeKey(key))
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}

// Store sets key to value in memory. Call Save to persist.
func (s *Store) Store(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := sjson.Set(s.doc, escapeKey(key), value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	s.doc = doc
	s.dirty = true
	return nil
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := sjson.Delete(s.doc, escapeKey(key))
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	s.doc = doc
	s.dirty = true
	return nil
}

// Keys returns the top-level keys in document order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	gjson.Parse(s.doc).ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	return keys
}

// Dirty reports whether there are unsaved changes.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Save writes the document if it changed. The file is replaced atomically.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("creating temp settings file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(s.doc); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing settings: %w", err)
	}

	s.dirty = false
	return nil
}

// escapeKey turns a flat key into a gjson/sjson path that addresses a
// single top-level member.
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
