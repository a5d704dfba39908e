package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
)

const sessionFile = "session.json"

// DefaultPath returns the session file location: a per-login runtime
// directory when the system provides one, the temp dir otherwise.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "olilab", sessionFile)
}

// FileStore keeps the logged-in user as a JSON document.
type FileStore struct {
	path string
}

// NewFileStore returns a store at path, or at DefaultPath when path is blank.
func NewFileStore(path string) *FileStore {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the stored user. A missing file yields an error matching
// os.ErrNotExist; unparsable content or a record without an id yields
// ErrMalformedSession.
func (f *FileStore) Load() (api.User, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return api.User{}, fmt.Errorf("read session: %w", err)
	}
	var user api.User
	if err := json.Unmarshal(data, &user); err != nil {
		return api.User{}, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}
	if strings.TrimSpace(user.ID) == "" {
		return api.User{}, fmt.Errorf("%w: missing id", ErrMalformedSession)
	}
	return user, nil
}

// Save replaces the stored user. The file is written next to its final
// location and renamed so readers never see a partial document.
func (f *FileStore) Save(user api.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, sessionFile+".*")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// Clear removes the stored user. Clearing an empty store is not an error.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
