package db

import "context"

// Store is the polling surface the client needs from the radio database.
// Implementations must treat missing tables or columns as "no data" rather
// than returning an error, so a half-provisioned database degrades to
// silence instead of crashing the control loop.
type Store interface {
	// MusicByID returns the music row with the given id, or nil if absent.
	MusicByID(ctx context.Context, id int64) (*MusicItem, error)

	// NextMusicAfter returns the lowest-id music row with id > lastID,
	// or nil when the watermark is already at the end of the table.
	NextMusicAfter(ctx context.Context, lastID int64) (*MusicItem, error)

	// LatestMusic returns the highest-id music row, or nil on an empty table.
	LatestMusic(ctx context.Context) (*MusicItem, error)

	// MaxMusicID returns the highest music id, or 0 on an empty table.
	MaxMusicID(ctx context.Context) (int64, error)

	// NextAIAlertAfter returns the next unacknowledged AI alert strictly
	// after lastID. Rows with a NULL or blank message are skipped.
	NextAIAlertAfter(ctx context.Context, lastID int64) (*Alert, error)

	// NextUserAlertAfter returns the next unacknowledged user alert strictly
	// after lastID. Rows with a blank message are skipped, as are rows older
	// than the freshness window when the schema tracks update times.
	NextUserAlertAfter(ctx context.Context, lastID int64) (*Alert, error)

	// AckAIAlert removes (or blanks) an AI alert row. It reports whether a
	// row was changed.
	AckAIAlert(ctx context.Context, id int64) (bool, error)

	// AckUserAlert removes (or blanks) a user alert row. It reports whether
	// a row was changed.
	AckUserAlert(ctx context.Context, id int64) (bool, error)

	// ServerStatus returns the current raw status string, or "" when the
	// status table is absent or empty.
	ServerStatus(ctx context.Context) (string, error)
}
