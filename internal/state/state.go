package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/logger"
)

// Store tracks which item identifiers were already delivered. Entries expire
// after the retention window, so old news may legitimately resurface; the
// pipeline favours at-least-once delivery over exactly-once.
type Store interface {
	IsSent(id string) bool
	MarkSent(id string, at time.Time)
	Prune(retentionDays int, now time.Time)
	Save() error
	Close() error
}

// fileState is the on-disk JSON shape.
type fileState struct {
	SentIDs map[string]string `json:"sent_ids"`
	LastRun *string           `json:"last_run"`
}

// FileStore keeps dedupe state in a single JSON file. It is read once at
// startup, mutated in memory, and rewritten atomically by Save.
type FileStore struct {
	path    string
	sentIDs map[string]string // id -> RFC3339 UTC timestamp
	lastRun *string
}

// LoadFile reads the state file. A missing or corrupt file yields a fresh
// empty state; corruption is logged, never fatal.
func LoadFile(path string) *FileStore {
	fs := &FileStore{
		path:    path,
		sentIDs: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("state file unreadable, starting fresh", "path", path, "error", err)
		}
		return fs
	}

	var raw fileState
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("state file corrupt, starting fresh", "path", path, "error", err)
		return fs
	}
	if raw.SentIDs != nil {
		fs.sentIDs = raw.SentIDs
	}
	fs.lastRun = raw.LastRun

	logger.Info("dedupe state loaded", "entries", len(fs.sentIDs))
	return fs
}

func (fs *FileStore) IsSent(id string) bool {
	_, ok := fs.sentIDs[id]
	return ok
}

func (fs *FileStore) MarkSent(id string, at time.Time) {
	fs.sentIDs[id] = at.UTC().Format(time.RFC3339)
}

// Prune drops entries strictly older than now minus the retention window.
// The comparison is on RFC3339 strings, which orders correctly because every
// writer stores UTC in a fixed format.
func (fs *FileStore) Prune(retentionDays int, now time.Time) {
	cutoff := now.UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339)

	removed := 0
	for id, ts := range fs.sentIDs {
		if ts < cutoff {
			delete(fs.sentIDs, id)
			removed++
		}
	}
	if removed > 0 {
		logger.Info("pruned expired dedupe entries", "removed", removed, "kept", len(fs.sentIDs))
	}
}

// Save writes the state atomically: temp file in the same directory, then
// rename. A crash mid-run therefore never corrupts the previous state.
func (fs *FileStore) Save() error {
	now := time.Now().UTC().Format(time.RFC3339)
	fs.lastRun = &now

	data, err := json.MarshalIndent(fileState{SentIDs: fs.sentIDs, LastRun: fs.lastRun}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}

	logger.Info("dedupe state saved", "entries", len(fs.sentIDs))
	return nil
}

func (fs *FileStore) Close() error { return nil }

// Len reports the number of tracked identifiers.
func (fs *FileStore) Len() int { return len(fs.sentIDs) }
