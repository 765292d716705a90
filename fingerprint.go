package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Fingerprint returns the lowercase hex SHA-256 digest of the raw dataset bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HasChanged reports whether a freshly computed digest differs from the stored
// one. A missing stored digest (first run) always counts as changed.
func HasChanged(current, stored string, ok bool) bool {
	if !ok {
		return true
	}
	return !strings.EqualFold(current, stored)
}

// FingerprintStore persists the digest of the last successfully synced dataset.
type FingerprintStore interface {
	// Load returns the stored digest. ok is false when nothing was stored yet.
	Load() (digest string, ok bool, err error)
	// Save overwrites the stored digest.
	Save(digest string) error
}

// FileFingerprintStore keeps the digest as a single line in a file
type FileFingerprintStore struct {
	Path string
}

// NewFileFingerprintStore creates a store backed by the file at path
func NewFileFingerprintStore(path string) *FileFingerprintStore {
	return &FileFingerprintStore{Path: path}
}

// Load reads the stored digest. An absent or blank file means no prior sync.
func (s *FileFingerprintStore) Load() (string, bool, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cannot read fingerprint file '%s': %w", s.Path, err)
	}
	digest := strings.TrimSpace(string(data))
	if digest == "" {
		return "", false, nil
	}
	return digest, true, nil
}

// Save writes the digest, replacing any previous value.
func (s *FileFingerprintStore) Save(digest string) error {
	return writeFileAtomic(s.Path, []byte(digest+"\n"))
}

// writeFileAtomic writes data to a temp file next to path and renames it into
// place, so a crash never leaves a truncated state file behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create directory '%s': %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("cannot create temp file for '%s': %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cannot write '%s': %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cannot write '%s': %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cannot set permissions on '%s': %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cannot replace '%s': %w", path, err)
	}
	return nil
}
