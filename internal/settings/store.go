package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Settings are the admin-editable values kept outside the database.
type Settings struct {
	APIKeys     map[string]string `json:"api_keys"`
	DatabaseURL string            `json:"database_url"`
	Mail        Mail              `json:"mail"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Mail overrides the SMTP environment config when Host is set.
type Mail struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	From     string `json:"from"`
}

// Configured reports whether enough is set to send mail.
func (m Mail) Configured() bool {
	return m.Host != "" && m.From != ""
}

// Store is a flat JSON file read on every Load and replaced on every Save.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewStore creates a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the current settings. A missing file yields empty settings.
func (s *Store) Load(ctx context.Context) (*Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Settings{APIKeys: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	st := &Settings{}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}
	if st.APIKeys == nil {
		st.APIKeys = map[string]string{}
	}
	return st, nil
}

// Save replaces the whole document. The write goes to a temp file that is
// renamed over the old one, so readers never see a partial file.
func (s *Store) Save(ctx context.Context, st *Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st.UpdatedAt = s.now().UTC()
	if st.APIKeys == nil {
		st.APIKeys = map[string]string{}
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
