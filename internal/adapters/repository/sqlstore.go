package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/okian/placar/internal/domain/model"
	"github.com/okian/placar/pkg/logger"
	"github.com/okian/placar/pkg/metrics"
)

const defaultPingTimeout = 5 * time.Second

// Ensure SQLStore implements Store.
var _ Store = (*SQLStore)(nil)

// SQLStore implements Store on database/sql for SQLite and PostgreSQL.
type SQLStore struct {
	db          *sql.DB
	dialect     dialect
	pingTimeout time.Duration
	logger      logger.Logger
}

// Open connects to the database, checks connectivity and applies the schema.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s: %w", d.driver, ErrMissingDSN)
	}

	s := &SQLStore{
		dialect:     d,
		pingTimeout: defaultPingTimeout,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	if d.driver == DriverSQLite {
		// One connection keeps :memory: databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.driver, err)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s.db = db
	s.logger.Info(ctx, "store opened", logger.String("driver", d.driver))
	return s, nil
}

// Driver returns the normalized driver name.
func (s *SQLStore) Driver() string { return s.dialect.driver }

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) observe(op string, start time.Time, err error) {
	metrics.RecordStoreQueryLatency(op, float64(time.Since(start).Milliseconds()))
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordStoreError(op)
		metrics.RecordErrorByComponent("store", op)
	}
}

const (
	upsertChampionship = `INSERT INTO championships (id) VALUES (?) ON CONFLICT (id) DO NOTHING`

	upsertTeam = `INSERT INTO teams (id, name, championship_id) VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = CASE WHEN teams.name = '' THEN excluded.name ELSE teams.name END,
    championship_id = CASE WHEN teams.championship_id = '' THEN excluded.championship_id ELSE teams.championship_id END`

	upsertMatch = `INSERT INTO matches
    (id, championship_id, home_team_id, home_team_name, away_team_id, away_team_name, home_score, away_score, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    championship_id = excluded.championship_id,
    home_team_id = excluded.home_team_id,
    home_team_name = excluded.home_team_name,
    away_team_id = excluded.away_team_id,
    away_team_name = excluded.away_team_name,
    home_score = excluded.home_score,
    away_score = excluded.away_score,
    status = excluded.status`

	insertEvent = `INSERT INTO match_events
    (id, match_id, kind, team_id, team_name, player_id, player_name, minute)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`

	matchColumns = `id, championship_id, home_team_id, home_team_name, away_team_id, away_team_name, home_score, away_score, status`
)

func (s *SQLStore) SaveMatch(ctx context.Context, m model.MatchRecord) (err error) { //nolint:gocritic // hugeParam: records are values across layers
	start := time.Now()
	defer func() { s.observe("save_match", start, err) }()

	if m.ID == "" || m.HomeTeamID == "" || m.AwayTeamID == "" {
		return fmt.Errorf("match %q: missing id or team: %w", m.ID, ErrInvalidRecord)
	}
	status := m.Status
	if status == "" {
		status = model.MatchScheduled
		if m.Completed {
			status = model.MatchCompleted
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if m.ChampionshipID != "" {
		if _, err = tx.ExecContext(ctx, s.dialect.rebind(upsertChampionship), m.ChampionshipID); err != nil {
			return fmt.Errorf("upsert championship %s: %w", m.ChampionshipID, err)
		}
	}
	for _, team := range [][2]string{{m.HomeTeamID, m.HomeTeamName}, {m.AwayTeamID, m.AwayTeamName}} {
		if _, err = tx.ExecContext(ctx, s.dialect.rebind(upsertTeam), team[0], team[1], m.ChampionshipID); err != nil {
			return fmt.Errorf("upsert team %s: %w", team[0], err)
		}
	}
	if _, err = tx.ExecContext(ctx, s.dialect.rebind(upsertMatch),
		m.ID, m.ChampionshipID,
		m.HomeTeamID, m.HomeTeamName,
		m.AwayTeamID, m.AwayTeamName,
		nullInt(m.HomeScore), nullInt(m.AwayScore),
		string(status),
	); err != nil {
		return fmt.Errorf("upsert match %s: %w", m.ID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit match %s: %w", m.ID, err)
	}
	return nil
}

func (s *SQLStore) SaveEvent(ctx context.Context, e model.GoalEvent) (stored bool, err error) { //nolint:gocritic // hugeParam: records are values across layers
	start := time.Now()
	defer func() { s.observe("save_event", start, err) }()

	if e.ID == "" || e.MatchID == "" || e.Kind == "" {
		return false, fmt.Errorf("event %q: missing id, match or kind: %w", e.ID, ErrInvalidRecord)
	}

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(insertEvent),
		e.ID, e.MatchID, string(e.Kind),
		e.TeamID, e.TeamName,
		nullString(e.PlayerID), nullString(e.PlayerName),
		nullInt(e.Minute),
	)
	if err != nil {
		return false, fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert event %s: rows affected: %w", e.ID, err)
	}
	return n > 0, nil
}

func (s *SQLStore) CompletedMatches(ctx context.Context, scope Scope) (out []model.MatchRecord, err error) {
	start := time.Now()
	defer func() { s.observe("completed_matches", start, err) }()

	query := `SELECT ` + matchColumns + ` FROM matches WHERE status = ?`
	args := []any{string(model.MatchCompleted)}
	if scope.ChampionshipID != "" {
		query += ` AND championship_id = ?`
		args = append(args, scope.ChampionshipID)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	out = make([]model.MatchRecord, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Events(ctx context.Context, scope Scope) (out []model.GoalEvent, err error) {
	start := time.Now()
	defer func() { s.observe("events", start, err) }()

	inner := `SELECT e.seq, e.id, e.match_id, e.kind, e.team_id, e.team_name, e.player_id, e.player_name, e.minute
FROM match_events e`
	var args []any
	if scope.ChampionshipID != "" {
		inner += ` JOIN matches m ON m.id = e.match_id`
	}
	inner += ` WHERE 1 = 1`
	if scope.Kind != "" {
		inner += ` AND e.kind = ?`
		args = append(args, string(scope.Kind))
	}
	if scope.ChampionshipID != "" {
		inner += ` AND m.championship_id = ?`
		args = append(args, scope.ChampionshipID)
	}
	inner += ` ORDER BY e.seq DESC`
	if scope.Window > 0 {
		inner += ` LIMIT ?`
		args = append(args, scope.Window)
	}
	query := `SELECT id, match_id, kind, team_id, team_name, player_id, player_name, minute FROM (` +
		inner + `) recent ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out = make([]model.GoalEvent, 0)
	for rows.Next() {
		var (
			e                    model.GoalEvent
			kind                 string
			playerID, playerName sql.NullString
			minute               sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.MatchID, &kind, &e.TeamID, &e.TeamName, &playerID, &playerName, &minute); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = model.EventKind(kind)
		e.PlayerID = playerID.String
		e.PlayerName = playerName.String
		e.Minute = intPtr(minute)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Match(ctx context.Context, id string) (m model.MatchRecord, err error) {
	start := time.Now()
	defer func() { s.observe("match", start, err) }()

	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+matchColumns+` FROM matches WHERE id = ?`), id)
	m, err = scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MatchRecord{}, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	return m, err
}

func (s *SQLStore) Overview(ctx context.Context, scope Scope) (o model.Overview, err error) {
	start := time.Now()
	defer func() { s.observe("overview", start, err) }()

	type counter struct {
		dst   *int
		query string
		args  []any
	}
	var counters []counter
	if scope.ChampionshipID == "" {
		counters = []counter{
			{&o.Championships, `SELECT COUNT(*) FROM championships`, nil},
			{&o.Matches, `SELECT COUNT(*) FROM matches`, nil},
			{&o.Teams, `SELECT COUNT(*) FROM teams`, nil},
		}
	} else {
		id := scope.ChampionshipID
		counters = []counter{
			{&o.Championships, `SELECT COUNT(*) FROM championships WHERE id = ?`, []any{id}},
			{&o.Matches, `SELECT COUNT(*) FROM matches WHERE championship_id = ?`, []any{id}},
			{&o.Teams, `SELECT COUNT(*) FROM (
    SELECT home_team_id AS team_id FROM matches WHERE championship_id = ?
    UNION
    SELECT away_team_id AS team_id FROM matches WHERE championship_id = ?
) scoped`, []any{id, id}},
		}
	}

	for _, c := range counters {
		if err := s.db.QueryRowContext(ctx, s.dialect.rebind(c.query), c.args...).Scan(c.dst); err != nil {
			return model.Overview{}, fmt.Errorf("count: %w", err)
		}
	}
	return o, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(r rowScanner) (model.MatchRecord, error) {
	var (
		m          model.MatchRecord
		home, away sql.NullInt64
		status     string
	)
	if err := r.Scan(&m.ID, &m.ChampionshipID, &m.HomeTeamID, &m.HomeTeamName, &m.AwayTeamID, &m.AwayTeamName, &home, &away, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, err
		}
		return m, fmt.Errorf("scan match: %w", err)
	}
	m.HomeScore = intPtr(home)
	m.AwayScore = intPtr(away)
	m.Status = model.MatchStatus(status)
	m.Completed = m.Status == model.MatchCompleted
	return m, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
