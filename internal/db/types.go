// Package db defines the radio database row types and the Postgres-backed
// store the client polls: the current/next music rows, the two alert queues,
// and the server status flag.
package db

import "strings"

// MusicItem is one row of the music table. DurationSeconds is nil when the
// row carries no duration, which players treat as continuous/unknown length.
type MusicItem struct {
	ID              int64
	Name            string
	Link            string
	DurationSeconds *int
}

// SameMusic reports whether a and b refer to the same playable target.
// Identity is (id, trimmed link): a row whose link was overwritten is a
// different target even though the id matches.
func SameMusic(a, b *MusicItem) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.ID == b.ID && strings.TrimSpace(a.Link) == strings.TrimSpace(b.Link)
}

// AlertKind distinguishes the two alert queues.
type AlertKind string

const (
	// AlertAI is a machine-generated alert. It ducks music instead of
	// stopping it and carries a severity tag.
	AlertAI AlertKind = "ai"

	// AlertUser is an operator-submitted alert. It preempts music entirely.
	AlertUser AlertKind = "user"
)

// Alert is one row of either alert table. Severity is informational and only
// populated for AI alerts.
type Alert struct {
	ID       int64
	Kind     AlertKind
	Message  string
	Severity string
}

// StatusEnabled reports whether a raw server status string permits audio.
// Only "net" and "both" (case-insensitive, trimmed) enable playback; every
// other value, including the empty string, disables it.
func StatusEnabled(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "net", "both":
		return true
	}
	return false
}
