package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"example.com/timed_chess_server/internal/game"
)

// SQL stores records in a single games table. It speaks both the sqlite
// ("sqlite") and postgres ("postgres") database/sql drivers.
type SQL struct {
	db     *sql.DB
	driver string
}

// OpenSQL opens the database and ensures the schema exists.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s dsn is required", driver)
	}
	if driver == "sqlite" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// One writer; sqlite serializes anyway and this avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	s := &SQL{db: db, driver: driver}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Ping checks the connection.
func (s *SQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQL) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS games (
  game_id TEXT PRIMARY KEY,
  white_player_id TEXT NOT NULL,
  black_player_id TEXT NOT NULL DEFAULT '',
  position TEXT NOT NULL,
  moves TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  result TEXT NOT NULL,
  reason TEXT NOT NULL DEFAULT '',
  time_control_millis BIGINT NOT NULL,
  white_remaining_millis BIGINT NOT NULL,
  black_remaining_millis BIGINT NOT NULL,
  sequence BIGINT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create games table: %w", err)
	}
	return nil
}

func (s *SQL) LoadGame(ctx context.Context, gameID string) (game.Record, error) {
	const q = `
SELECT game_id, white_player_id, black_player_id, position, moves, status, result, reason,
  time_control_millis, white_remaining_millis, black_remaining_millis, sequence
FROM games WHERE game_id = ?`
	var (
		rec   game.Record
		moves string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(q), gameID).Scan(
		&rec.GameID,
		&rec.WhitePlayerID,
		&rec.BlackPlayerID,
		&rec.Position,
		&moves,
		&rec.Status,
		&rec.Result,
		&rec.Reason,
		&rec.TimeControlMillis,
		&rec.WhiteRemainingMillis,
		&rec.BlackRemainingMillis,
		&rec.Sequence,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Record{}, ErrNotFound
	}
	if err != nil {
		return game.Record{}, fmt.Errorf("load game %s: %w", gameID, err)
	}
	if f := strings.Fields(moves); len(f) > 0 {
		rec.Moves = f
	}
	return rec, nil
}

func (s *SQL) SaveGame(ctx context.Context, rec game.Record) error {
	const stmt = `
INSERT INTO games (game_id, white_player_id, black_player_id, position, moves, status, result, reason,
  time_control_millis, white_remaining_millis, black_remaining_millis, sequence)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(game_id) DO UPDATE SET
  white_player_id=excluded.white_player_id,
  black_player_id=excluded.black_player_id,
  position=excluded.position,
  moves=excluded.moves,
  status=excluded.status,
  result=excluded.result,
  reason=excluded.reason,
  time_control_millis=excluded.time_control_millis,
  white_remaining_millis=excluded.white_remaining_millis,
  black_remaining_millis=excluded.black_remaining_millis,
  sequence=excluded.sequence`
	_, err := s.db.ExecContext(ctx, s.rebind(stmt),
		rec.GameID,
		rec.WhitePlayerID,
		rec.BlackPlayerID,
		rec.Position,
		strings.Join(rec.Moves, " "),
		string(rec.Status),
		string(rec.Result),
		string(rec.Reason),
		rec.TimeControlMillis,
		rec.WhiteRemainingMillis,
		rec.BlackRemainingMillis,
		rec.Sequence,
	)
	if err != nil {
		return fmt.Errorf("save game %s: %w", rec.GameID, err)
	}
	return nil
}

func (s *SQL) ActiveGameIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT game_id FROM games WHERE status = ? ORDER BY game_id`), string(game.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("list active games: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQL) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders as $n for postgres.
func (s *SQL) rebind(q string) string {
	if s.driver != "postgres" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
