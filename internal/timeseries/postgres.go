package timeseries

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

const snapshotsTable = "game_snapshots"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS ` + snapshotsTable + ` (
	measurement    TEXT        NOT NULL,
	game_id        TEXT        NOT NULL,
	league         TEXT        NOT NULL,
	home_team      TEXT        NOT NULL,
	away_team      TEXT        NOT NULL,
	status         TEXT        NOT NULL,
	home_score     INTEGER     NOT NULL,
	away_score     INTEGER     NOT NULL,
	period         INTEGER     NOT NULL,
	time_remaining TEXT        NOT NULL DEFAULT '',
	observed_at    TIMESTAMPTZ NOT NULL,
	written_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (measurement, game_id, observed_at)
);
CREATE INDEX IF NOT EXISTS game_snapshots_observed_idx ON ` + snapshotsTable + ` (measurement, observed_at DESC);`

const upsertSQL = `
INSERT INTO ` + snapshotsTable + ` (
	measurement, game_id, league, home_team, away_team, status,
	home_score, away_score, period, time_remaining, observed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (measurement, game_id, observed_at) DO UPDATE SET
	league = EXCLUDED.league,
	home_team = EXCLUDED.home_team,
	away_team = EXCLUDED.away_team,
	status = EXCLUDED.status,
	home_score = EXCLUDED.home_score,
	away_score = EXCLUDED.away_score,
	period = EXCLUDED.period,
	time_remaining = EXCLUDED.time_remaining,
	written_at = NOW()`

// pgxConn is the subset of pgxpool.Pool the gateway needs.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresGateway stores points in a Postgres (or TimescaleDB) table.
type PostgresGateway struct {
	conn pgxConn
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL and verifies the connection.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresGateway, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresGateway{conn: pool, pool: pool}, nil
}

// NewPostgresGateway wraps an existing connection or pool.
func NewPostgresGateway(conn pgxConn) *PostgresGateway {
	return &PostgresGateway{conn: conn}
}

// EnsureSchema creates the snapshots table and index when missing.
func (g *PostgresGateway) EnsureSchema(ctx context.Context) error {
	if _, err := g.conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Write upserts p. Writing the same point twice leaves one row.
func (g *PostgresGateway) Write(ctx context.Context, p Point) error {
	if err := p.validate(); err != nil {
		return err
	}
	_, err := g.conn.Exec(ctx, upsertSQL,
		p.Measurement, p.Tags.GameID, string(p.Tags.League), p.Tags.HomeTeam, p.Tags.AwayTeam,
		string(p.Tags.Status), p.Fields.HomeScore, p.Fields.AwayScore, p.Fields.Period,
		p.Fields.TimeRemaining, p.Time.UTC(),
	)
	if err != nil {
		return fmt.Errorf("write point %s/%s: %w", p.Measurement, p.Tags.GameID, err)
	}
	return nil
}

// Query returns snapshots inside r matching f, ordered by game id then time.
func (g *PostgresGateway) Query(ctx context.Context, r Range, f Filter) ([]games.Snapshot, error) {
	sql, args := buildQuery(r, f)
	rows, err := g.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []games.Snapshot
	for rows.Next() {
		var (
			s              games.Snapshot
			league, status string
		)
		if err := rows.Scan(&s.GameID, &league, &s.HomeTeam, &s.AwayTeam, &status,
			&s.HomeScore, &s.AwayScore, &s.Period, &s.TimeRemaining, &s.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.League = games.League(league)
		s.Status = games.Status(status)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read snapshots: %w", err)
	}
	return out, nil
}

// Close releases the pool when the gateway opened it.
func (g *PostgresGateway) Close() {
	if g.pool != nil {
		g.pool.Close()
	}
}

func buildQuery(r Range, f Filter) (string, []any) {
	var (
		b     strings.Builder
		args  []any
		where []string
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	where = append(where, "measurement = "+arg(f.measurement()))
	if !r.Start.IsZero() {
		where = append(where, "observed_at >= "+arg(r.Start.UTC()))
	}
	if !r.End.IsZero() {
		where = append(where, "observed_at < "+arg(r.End.UTC()))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, "status = ANY("+arg(statuses)+")")
	}
	if len(f.Leagues) > 0 {
		leagues := make([]string, len(f.Leagues))
		for i, l := range f.Leagues {
			leagues[i] = string(l)
		}
		where = append(where, "league = ANY("+arg(leagues)+")")
	}

	b.WriteString("SELECT ")
	if f.LatestOnly {
		b.WriteString("DISTINCT ON (game_id) ")
	}
	b.WriteString("game_id, league, home_team, away_team, status, home_score, away_score, period, time_remaining, observed_at FROM ")
	b.WriteString(snapshotsTable)
	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(where, " AND "))
	if f.LatestOnly {
		b.WriteString(" ORDER BY game_id, observed_at DESC")
	} else {
		b.WriteString(" ORDER BY game_id, observed_at")
	}
	return b.String(), args
}
