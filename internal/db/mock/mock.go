// Package mock provides an in-memory test double for [db.Store].
//
// Rows are plain exported slices so a test can mutate the "database" between
// control-loop ticks; acknowledge calls are recorded for assertions.
//
// Example:
//
//	store := &mock.Store{
//	    Music:  []db.MusicItem{{ID: 1, Name: "Song", Link: "L1"}},
//	    Status: "net",
//	}
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/pattupetti/fmclient/internal/db"
)

// Compile-time interface assertion.
var _ db.Store = (*Store)(nil)

// Store is an in-memory mock implementation of [db.Store].
// The zero value is an empty database with an empty status. It is safe for
// concurrent use.
type Store struct {
	mu sync.Mutex

	// Music holds the music table rows in any order.
	Music []db.MusicItem

	// AIAlerts and UserAlerts hold the alert table rows in any order.
	AIAlerts   []db.Alert
	UserAlerts []db.Alert

	// Status is the raw value returned by ServerStatus.
	Status string

	// Err, when non-nil, is returned by every query method. It simulates an
	// unreachable database.
	Err error

	// AckedAI and AckedUser accumulate the ids passed to the Ack methods in
	// call order.
	AckedAI   []int64
	AckedUser []int64

	// AckResult is what the Ack methods report. Defaults to true once any
	// matching row exists.
	AckFails bool
}

// MusicByID returns the music row with the given id, or nil.
func (s *Store) MusicByID(_ context.Context, id int64) (*db.MusicItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for i := range s.Music {
		if s.Music[i].ID == id {
			m := s.Music[i]
			return &m, nil
		}
	}
	return nil, nil
}

// NextMusicAfter returns the lowest-id row with id > lastID, or nil.
func (s *Store) NextMusicAfter(_ context.Context, lastID int64) (*db.MusicItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var best *db.MusicItem
	for i := range s.Music {
		m := s.Music[i]
		if m.ID > lastID && (best == nil || m.ID < best.ID) {
			best = &m
		}
	}
	if best == nil {
		return nil, nil
	}
	out := *best
	return &out, nil
}

// LatestMusic returns the highest-id row, or nil.
func (s *Store) LatestMusic(_ context.Context) (*db.MusicItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var best *db.MusicItem
	for i := range s.Music {
		m := s.Music[i]
		if best == nil || m.ID > best.ID {
			best = &m
		}
	}
	if best == nil {
		return nil, nil
	}
	out := *best
	return &out, nil
}

// MaxMusicID returns the highest music id, or 0.
func (s *Store) MaxMusicID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var max int64
	for i := range s.Music {
		if s.Music[i].ID > max {
			max = s.Music[i].ID
		}
	}
	return max, nil
}

func nextAlert(rows []db.Alert, lastID int64, kind db.AlertKind) *db.Alert {
	var best *db.Alert
	for i := range rows {
		a := rows[i]
		if a.ID > lastID && strings.TrimSpace(a.Message) != "" && (best == nil || a.ID < best.ID) {
			best = &a
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	out.Kind = kind
	return &out
}

// NextAIAlertAfter returns the next AI alert past the watermark, or nil.
func (s *Store) NextAIAlertAfter(_ context.Context, lastID int64) (*db.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return nextAlert(s.AIAlerts, lastID, db.AlertAI), nil
}

// NextUserAlertAfter returns the next user alert past the watermark, or nil.
func (s *Store) NextUserAlertAfter(_ context.Context, lastID int64) (*db.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return nextAlert(s.UserAlerts, lastID, db.AlertUser), nil
}

func removeAlert(rows []db.Alert, id int64) ([]db.Alert, bool) {
	for i := range rows {
		if rows[i].ID == id {
			return append(rows[:i:i], rows[i+1:]...), true
		}
	}
	return rows, false
}

// AckAIAlert records the call and removes the row.
func (s *Store) AckAIAlert(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	s.AckedAI = append(s.AckedAI, id)
	if s.AckFails {
		return false, nil
	}
	var ok bool
	s.AIAlerts, ok = removeAlert(s.AIAlerts, id)
	return ok, nil
}

// AckUserAlert records the call and removes the row.
func (s *Store) AckUserAlert(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	s.AckedUser = append(s.AckedUser, id)
	if s.AckFails {
		return false, nil
	}
	var ok bool
	s.UserAlerts, ok = removeAlert(s.UserAlerts, id)
	return ok, nil
}

// ServerStatus returns the configured status string.
func (s *Store) ServerStatus(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	return s.Status, nil
}

// SetStatus replaces the status value. Convenience for tests that flip the
// gate mid-run.
func (s *Store) SetStatus(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = v
}

// SetMusic replaces the music table contents.
func (s *Store) SetMusic(rows ...db.MusicItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Music = append([]db.MusicItem(nil), rows...)
}
