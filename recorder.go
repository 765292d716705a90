package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// SyncTimeLayout is the layout of the last-sync-time file.
const SyncTimeLayout = "2006-01-02 15:04:05"

// syncTimeZone is the fixed civil-time offset used for the last-sync-time file.
var syncTimeZone = time.FixedZone("UTC+8", 8*60*60)

// RunRecorder persists the outcome of a successful sync: the new fingerprint
// and a human-readable timestamp.
type RunRecorder struct {
	Store    FingerprintStore
	TimePath string
	Now      func() time.Time
}

// NewRunRecorder creates a recorder writing the timestamp to timePath
func NewRunRecorder(store FingerprintStore, timePath string) *RunRecorder {
	return &RunRecorder{
		Store:    store,
		TimePath: timePath,
		Now:      time.Now,
	}
}

// Record saves the current time, then digest. It must only be called after the
// whole statement sequence was applied. The fingerprint is written last so a
// failed timestamp write leaves the run unrecorded and the next run rebuilds.
// The formatted timestamp is returned.
func (r *RunRecorder) Record(digest string) (string, error) {
	stamp := r.Now().In(syncTimeZone).Format(SyncTimeLayout)
	if err := writeFileAtomic(r.TimePath, []byte(stamp)); err != nil {
		return "", fmt.Errorf("error saving sync time: %w", err)
	}
	if err := r.Store.Save(digest); err != nil {
		return "", fmt.Errorf("error saving fingerprint: %w", err)
	}
	return stamp, nil
}

// LastSyncTime returns the stored timestamp; ok is false when no sync was recorded.
func (r *RunRecorder) LastSyncTime() (string, bool, error) {
	data, err := os.ReadFile(r.TimePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cannot read sync time file '%s': %w", r.TimePath, err)
	}
	stamp := strings.TrimSpace(string(data))
	return stamp, stamp != "", nil
}
