// Package store is the persistence boundary: a Postgres table of match
// rows plus one server-side function that replaces the rows for a set of
// calendar days atomically, invoked as a single call per run.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"matchstream/match"
)

// Store wraps the match-stream table and its refresh function.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the table, its indexes and the atomic refresh function.
func (s *Store) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS match_streams (
			id BIGSERIAL PRIMARY KEY,
			match_key TEXT UNIQUE NOT NULL,
			home_team TEXT NOT NULL,
			away_team TEXT NOT NULL,
			home_logo TEXT NOT NULL DEFAULT '',
			away_logo TEXT NOT NULL DEFAULT '',
			stream_url TEXT NOT NULL DEFAULT '',
			stream_url_2 TEXT,
			stream_url_3 TEXT,
			stream_url_4 TEXT,
			stream_url_5 TEXT,
			match_day DATE NOT NULL,
			match_start TIMESTAMPTZ,
			match_time TEXT NOT NULL DEFAULT '',
			home_score INTEGER,
			away_score INTEGER,
			status_key VARCHAR(16) NOT NULL DEFAULT 'unknown',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_match_streams_day ON match_streams(match_day)`,
		`CREATE INDEX IF NOT EXISTS idx_match_streams_key ON match_streams(match_key)`,

		// All rows for the given days are replaced together, or none.
		`CREATE OR REPLACE FUNCTION refresh_match_streams(p_days date[], p_rows jsonb)
		RETURNS void LANGUAGE plpgsql AS $$
		BEGIN
			DELETE FROM match_streams WHERE match_day = ANY(p_days);
			INSERT INTO match_streams (
				match_key, home_team, away_team, home_logo, away_logo,
				stream_url, stream_url_2, stream_url_3, stream_url_4, stream_url_5,
				match_day, match_start, match_time, home_score, away_score, status_key
			)
			SELECT
				r.match_key, r.home_team, r.away_team,
				COALESCE(r.home_logo, ''), COALESCE(r.away_logo, ''),
				COALESCE(r.stream_url, ''), r.stream_url_2, r.stream_url_3,
				r.stream_url_4, r.stream_url_5,
				r.match_day, r.match_start, COALESCE(r.match_time, ''),
				r.home_score, r.away_score, COALESCE(r.status_key, 'unknown')
			FROM jsonb_to_recordset(p_rows) AS r(
				match_key text, home_team text, away_team text,
				home_logo text, away_logo text,
				stream_url text, stream_url_2 text, stream_url_3 text,
				stream_url_4 text, stream_url_5 text,
				match_day date, match_start timestamptz, match_time text,
				home_score integer, away_score integer, status_key text
			)
			WHERE r.match_day = ANY(p_days)
			ON CONFLICT (match_key) DO UPDATE SET
				home_team = EXCLUDED.home_team,
				away_team = EXCLUDED.away_team,
				home_logo = EXCLUDED.home_logo,
				away_logo = EXCLUDED.away_logo,
				stream_url = EXCLUDED.stream_url,
				stream_url_2 = EXCLUDED.stream_url_2,
				stream_url_3 = EXCLUDED.stream_url_3,
				stream_url_4 = EXCLUDED.stream_url_4,
				stream_url_5 = EXCLUDED.stream_url_5,
				match_day = EXCLUDED.match_day,
				match_start = EXCLUDED.match_start,
				match_time = EXCLUDED.match_time,
				home_score = EXCLUDED.home_score,
				away_score = EXCLUDED.away_score,
				status_key = EXCLUDED.status_key,
				updated_at = now();
		END $$`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
	}
	return nil
}

const recordColumns = `id, match_key, home_team, away_team, home_logo, away_logo,
	stream_url, stream_url_2, stream_url_3, stream_url_4, stream_url_5,
	match_day, match_start, match_time, home_score, away_score, status_key`

// ExistingForDays reads the persisted rows for the given calendar days,
// feeding the merge engine.
func (s *Store) ExistingForDays(ctx context.Context, days []string) ([]match.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM match_streams WHERE match_day = ANY($1)`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(days))
	if err != nil {
		return nil, fmt.Errorf("reading existing rows: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// RefreshDays replaces the rows for the given days with the final batch in
// one atomic remote call.
func (s *Store) RefreshDays(ctx context.Context, days []string, batch []match.Record) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encoding batch: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`SELECT refresh_match_streams($1, $2::jsonb)`,
		pq.Array(days), string(payload),
	); err != nil {
		return fmt.Errorf("refreshing days %v: %w", days, err)
	}
	return nil
}

// MatchByID returns one row, or nil when it does not exist.
func (s *Store) MatchByID(ctx context.Context, id int64) (*match.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM match_streams WHERE id = $1`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("reading match %d: %w", id, err)
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return &recs[0], nil
}

// MatchesByDay returns all rows for a calendar day, ordered by start time
// then id.
func (s *Store) MatchesByDay(ctx context.Context, day string) ([]match.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM match_streams
		WHERE match_day = $1
		ORDER BY match_start ASC NULLS LAST, id ASC`
	rows, err := s.db.QueryContext(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("reading matches for %s: %w", day, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]match.Record, error) {
	var out []match.Record
	for rows.Next() {
		var (
			rec       match.Record
			logoH     sql.NullString
			logoA     sql.NullString
			u2, u3    sql.NullString
			u4, u5    sql.NullString
			day       time.Time
			start     sql.NullTime
			matchTime sql.NullString
			hs, as    sql.NullInt64
			statusKey string
		)
		if err := rows.Scan(
			&rec.ID, &rec.MatchKey, &rec.HomeTeam, &rec.AwayTeam, &logoH, &logoA,
			&rec.StreamURL, &u2, &u3, &u4, &u5,
			&day, &start, &matchTime, &hs, &as, &statusKey,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		rec.HomeLogo = logoH.String
		rec.AwayLogo = logoA.String
		rec.StreamURL2 = u2.String
		rec.StreamURL3 = u3.String
		rec.StreamURL4 = u4.String
		rec.StreamURL5 = u5.String
		rec.MatchDay = day.Format("2006-01-02")
		if start.Valid {
			t := start.Time
			rec.MatchStart = &t
		}
		rec.MatchTime = matchTime.String
		if hs.Valid {
			n := int(hs.Int64)
			rec.HomeScore = &n
		}
		if as.Valid {
			n := int(as.Int64)
			rec.AwayScore = &n
		}
		rec.Status = match.Status(statusKey)
		out = append(out, rec)
	}
	return out, rows.Err()
}
