package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the database interface used by [Postgres]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres is a [Store] backed by a PostgreSQL database. Connections are
// owned by the caller (typically a bounded pgxpool); every method is a single
// scoped query.
type Postgres struct {
	db DBTX
}

// Compile-time interface check.
var _ Store = (*Postgres)(nil)

// NewPostgres creates a [Store] over the given connection or pool.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// Postgres error codes that mean the schema simply does not have what we
// asked for. Those degrade to "no data" per the Store contract.
const (
	pgUndefinedTable  = "42P01"
	pgUndefinedColumn = "42703"
)

func schemaMissing(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUndefinedTable || pgErr.Code == pgUndefinedColumn
}

func (s *Postgres) scanMusic(row pgx.Row) (*MusicItem, error) {
	var m MusicItem
	if err := row.Scan(&m.ID, &m.Name, &m.Link, &m.DurationSeconds); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if schemaMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// MusicByID returns the music row with the given id, or nil if absent.
func (s *Postgres) MusicByID(ctx context.Context, id int64) (*MusicItem, error) {
	const query = `
		SELECT id, COALESCE(name, ''), COALESCE(link, ''), duration_seconds
		FROM music
		WHERE id = $1
		LIMIT 1`
	m, err := s.scanMusic(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("db: music by id %d: %w", id, err)
	}
	return m, nil
}

// NextMusicAfter returns the lowest-id music row past the watermark, or nil.
func (s *Postgres) NextMusicAfter(ctx context.Context, lastID int64) (*MusicItem, error) {
	const query = `
		SELECT id, COALESCE(name, ''), COALESCE(link, ''), duration_seconds
		FROM music
		WHERE id > $1
		ORDER BY id ASC
		LIMIT 1`
	m, err := s.scanMusic(s.db.QueryRow(ctx, query, lastID))
	if err != nil {
		return nil, fmt.Errorf("db: next music after %d: %w", lastID, err)
	}
	return m, nil
}

// LatestMusic returns the highest-id music row, or nil on an empty table.
func (s *Postgres) LatestMusic(ctx context.Context) (*MusicItem, error) {
	const query = `
		SELECT id, COALESCE(name, ''), COALESCE(link, ''), duration_seconds
		FROM music
		ORDER BY id DESC
		LIMIT 1`
	m, err := s.scanMusic(s.db.QueryRow(ctx, query))
	if err != nil {
		return nil, fmt.Errorf("db: latest music: %w", err)
	}
	return m, nil
}

// MaxMusicID returns the highest music id, or 0 on an empty table.
func (s *Postgres) MaxMusicID(ctx context.Context) (int64, error) {
	var max int64
	err := s.db.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM music`).Scan(&max)
	if err != nil {
		if schemaMissing(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("db: max music id: %w", err)
	}
	return max, nil
}

// NextAIAlertAfter returns the next AI alert past the watermark, or nil.
func (s *Postgres) NextAIAlertAfter(ctx context.Context, lastID int64) (*Alert, error) {
	const query = `
		SELECT id, message, COALESCE(severity, '')
		FROM ai_alert
		WHERE id > $1 AND message IS NOT NULL AND btrim(message) <> ''
		ORDER BY id ASC
		LIMIT 1`
	var a Alert
	err := s.db.QueryRow(ctx, query, lastID).Scan(&a.ID, &a.Message, &a.Severity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || schemaMissing(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("db: next ai alert after %d: %w", lastID, err)
	}
	a.Kind = AlertAI
	return &a, nil
}

// NextUserAlertAfter returns the next user alert past the watermark, or nil.
// Rows older than one hour are skipped so a client that was offline does not
// speak a backlog of stale messages. Schemas without a last_updated column
// get the same query without the freshness clause.
func (s *Postgres) NextUserAlertAfter(ctx context.Context, lastID int64) (*Alert, error) {
	const fresh = `
		SELECT id, message
		FROM user_alert
		WHERE id > $1 AND message IS NOT NULL AND btrim(message) <> ''
		  AND (last_updated IS NULL OR last_updated >= now() - interval '1 hour')
		ORDER BY id ASC
		LIMIT 1`
	const plain = `
		SELECT id, message
		FROM user_alert
		WHERE id > $1 AND message IS NOT NULL AND btrim(message) <> ''
		ORDER BY id ASC
		LIMIT 1`

	var a Alert
	err := s.db.QueryRow(ctx, fresh, lastID).Scan(&a.ID, &a.Message)
	if err != nil && schemaMissing(err) {
		err = s.db.QueryRow(ctx, plain, lastID).Scan(&a.ID, &a.Message)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || schemaMissing(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("db: next user alert after %d: %w", lastID, err)
	}
	a.Kind = AlertUser
	return &a, nil
}

// ack deletes the alert row and, if nothing was deleted (read-only grants on
// some deployments), falls back to blanking the message so the row is no
// longer selectable.
func (s *Postgres) ack(ctx context.Context, table string, id int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err == nil && tag.RowsAffected() > 0 {
		return true, nil
	}
	if err != nil && schemaMissing(err) {
		return false, nil
	}

	tag, err = s.db.Exec(ctx, `UPDATE `+table+` SET message = '' WHERE id = $1`, id)
	if err != nil {
		if schemaMissing(err) {
			return false, nil
		}
		return false, fmt.Errorf("db: ack %s %d: %w", table, id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// AckAIAlert removes or blanks an AI alert row.
func (s *Postgres) AckAIAlert(ctx context.Context, id int64) (bool, error) {
	return s.ack(ctx, "ai_alert", id)
}

// AckUserAlert removes or blanks a user alert row.
func (s *Postgres) AckUserAlert(ctx context.Context, id int64) (bool, error) {
	return s.ack(ctx, "user_alert", id)
}

// ServerStatus returns the newest status string, or "" when unknown.
func (s *Postgres) ServerStatus(ctx context.Context) (string, error) {
	var status *string
	err := s.db.QueryRow(ctx,
		`SELECT status FROM status_server ORDER BY id DESC LIMIT 1`,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || schemaMissing(err) {
			return "", nil
		}
		return "", fmt.Errorf("db: server status: %w", err)
	}
	if status == nil {
		return "", nil
	}
	return *status, nil
}
