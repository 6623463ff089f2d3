package credential

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Overlay is the subset of persisted-file fields a refresh updates.
type Overlay struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	ProfileArn   string
}

// fileContents is the on-disk JSON shape of a credentials file, matching
// the field names the SOCIAL/OIDC responses and spec.md §4.1 use.
type fileContents struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ProfileArn   string    `json:"profileArn,omitempty"`

	// Extra carries any other keys already present in the file (region,
	// authKind, clientId, ...) so a Persist call never clobbers fields it
	// doesn't know about.
	Extra map[string]interface{} `json:"-"`
}

// FileStore persists refreshed credentials to a local JSON file using a
// temp-file-plus-rename write, so a crash mid-write can never leave a
// partially-written file behind (spec.md §4.1 invariant (c)).
//
// The teacher's equivalent, pkg/auth/storage.go's FileTokenStorage.StoreToken,
// writes with a plain os.WriteFile; this is the one place this module
// deliberately diverges from the teacher's exact mechanism, justified by
// that crash-safety invariant.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore builds a FileStore writing to path. path's directory must
// exist; NewFileStore does not create it.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Persist reads the current file (if any), overlays the given fields, and
// writes the result atomically.
func (s *FileStore) Persist(o Overlay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents := fileContents{Extra: map[string]interface{}{}}
	if raw, err := os.ReadFile(s.path); err == nil {
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err == nil {
			contents.Extra = m
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("credential: read %s: %w", s.path, err)
	}

	contents.Extra["accessToken"] = o.AccessToken
	contents.Extra["refreshToken"] = o.RefreshToken
	contents.Extra["expiresAt"] = o.ExpiresAt
	if o.ProfileArn != "" {
		contents.Extra["profileArn"] = o.ProfileArn
	}

	data, err := json.MarshalIndent(contents.Extra, "", "  ")
	if err != nil {
		return fmt.Errorf("credential: encode %s: %w", s.path, err)
	}

	return writeFileAtomic(s.path, data, 0o600)
}

// Load reads the current persisted credentials, if the file exists.
func (s *FileStore) Load() (fileContents, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileContents{}, false, nil
		}
		return fileContents{}, false, fmt.Errorf("credential: read %s: %w", s.path, err)
	}

	var fc fileContents
	if err := json.Unmarshal(raw, &fc); err != nil {
		return fileContents{}, false, fmt.Errorf("credential: parse %s: %w", s.path, err)
	}
	return fc, true, nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("credential: create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("credential: write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("credential: chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("credential: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("credential: rename temp file onto %s: %w", path, err)
	}
	return nil
}
