// Package state persists the client's progress record across restarts: the
// last played music row and the per-kind alert watermarks.
//
// The record is deliberately tiny and is rewritten in full on every mutation.
// A missing or unreadable file is not an error — the client simply starts
// from a zero record and replays nothing worse than the current track.
package state

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ClientState is the single durable record the client keeps.
type ClientState struct {
	// LastMusicID is the highest music row id that finished playing normally.
	LastMusicID int64 `yaml:"last_music_id"`

	// LastMusicLink is the link of that row, used to detect in-place
	// overwrites of the newest row in sequential mode.
	LastMusicLink string `yaml:"last_music_link"`

	// LastAIAlertID and LastUserAlertID are the per-kind alert watermarks.
	LastAIAlertID   int64 `yaml:"last_ai_alert_id"`
	LastUserAlertID int64 `yaml:"last_user_alert_id"`
}

// Load reads the state file at path. Absence or corruption yields a fresh
// zero record; only the corruption case is logged.
func Load(path string) *ClientState {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("state: unreadable file, starting fresh", "path", path, "err", err)
		}
		return &ClientState{}
	}

	st := &ClientState{}
	if err := yaml.Unmarshal(data, st); err != nil {
		slog.Warn("state: corrupt file, starting fresh", "path", path, "err", err)
		return &ClientState{}
	}
	return st
}

// Save rewrites the state file wholesale. The parent directory is created if
// needed. Only the main control loop mutates state, so no locking is done.
func Save(path string, st *ClientState) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("state: create dir %q: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("state: write %q: %w", path, err)
	}
	return nil
}
