package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Session is acquired from Login and passed to every authenticated call.
// The zero Session is logged out.
type Session struct {
	Token    string `json:"token"`
	UserName string `json:"user_name"`
}

func (s Session) Valid() bool { return s.Token != "" }

// TokenStore persists the session between runs.
type TokenStore interface {
	Load() (Session, bool)
	Save(Session) error
	Clear() error
}

// MemoryStore keeps the session for the life of the process.
type MemoryStore struct {
	mu      sync.Mutex
	session Session
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.session.Valid()
}

func (m *MemoryStore) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.Save(Session{})
}

// FileStore keeps the session as JSON in a user-only file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

// DefaultSessionPath is ~/.config/dompet/session.json or the OS equivalent.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "dompet", "session.json"), nil
}

func (f *FileStore) Load() (Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := os.ReadFile(f.path)
	if err != nil {
		return Session{}, false
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, false
	}
	return s, s.Valid()
}

func (f *FileStore) Save(s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
