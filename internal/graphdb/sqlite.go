// Package graphdb loads the static GraphDescription (platforms and
// directed edges) from a local SQLite seed database. This is
// read-only geography data checked into a deployment once and
// refreshed manually when the physical network changes — distinct
// from the learned parameters and runtime state, which are never
// persisted (spec.md §1 Non-goals, §6).
package graphdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/maskerade/metrolinkTimes/internal/network"
)

// DB wraps a read-only SQLite connection to the graph seed database.
type DB struct {
	conn *sql.DB
}

// Open opens the graph database in read-only mode with a small,
// single-connection pool — there is exactly one reader (startup) and
// the schema never changes at runtime.
func Open(path string) (*DB, error) {
	dsn := path + "?_journal=WAL&mode=ro&_busy_timeout=5000"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("graphdb: failed to open %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("graphdb: failed to ping %s: %w", path, err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// schema documents the expected tables; Open does not create them —
// the seed database is prepared once, out of band, not by this
// process.
const schema = `
-- platforms(station TEXT, platform TEXT, x REAL, y REAL)
-- edges(from_station TEXT, from_platform TEXT, to_station TEXT, to_platform TEXT)
`

// Load reads the full GraphDescription from the database.
func (db *DB) Load(ctx context.Context) (network.GraphDescription, error) {
	var desc network.GraphDescription

	platformRows, err := db.conn.QueryContext(ctx, `SELECT station, platform, x, y FROM platforms`)
	if err != nil {
		return desc, fmt.Errorf("graphdb: failed to query platforms: %w", err)
	}
	defer platformRows.Close()

	for platformRows.Next() {
		var p network.Platform
		if err := platformRows.Scan(&p.Station, &p.Platform, &p.X, &p.Y); err != nil {
			return desc, fmt.Errorf("graphdb: failed to scan platform: %w", err)
		}
		desc.Platforms = append(desc.Platforms, p)
	}
	if err := platformRows.Err(); err != nil {
		return desc, fmt.Errorf("graphdb: failed reading platforms: %w", err)
	}

	edgeRows, err := db.conn.QueryContext(ctx,
		`SELECT from_station, from_platform, to_station, to_platform FROM edges`)
	if err != nil {
		return desc, fmt.Errorf("graphdb: failed to query edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var e network.EdgeDescription
		if err := edgeRows.Scan(&e.FromStation, &e.FromPlatform, &e.ToStation, &e.ToPlatform); err != nil {
			return desc, fmt.Errorf("graphdb: failed to scan edge: %w", err)
		}
		desc.Edges = append(desc.Edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return desc, fmt.Errorf("graphdb: failed reading edges: %w", err)
	}

	return desc, nil
}
