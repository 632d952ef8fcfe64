package store

import (
	"database/sql"
	"fmt"
)

// migrations are applied in order inside one transaction each;
// schema_migrations records which versions have run.
var migrations = []struct {
	version int
	stmts   []string
}{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS events (
				id         TEXT PRIMARY KEY,
				user_id    TEXT NOT NULL DEFAULT 'anon',
				session_id TEXT,
				type       TEXT NOT NULL,
				track_id   TEXT,
				ts         INTEGER NOT NULL,
				payload    TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_events_user_ts ON events(user_id, ts)`,
			`CREATE INDEX IF NOT EXISTS idx_events_track ON events(track_id)`,
			`CREATE INDEX IF NOT EXISTS idx_events_type_ts ON events(type, ts)`,
			`CREATE TABLE IF NOT EXISTS tracks (
				track_id    TEXT PRIMARY KEY,
				title       TEXT,
				artist      TEXT,
				album       TEXT,
				art_url     TEXT,
				store_url   TEXT,
				preview_url TEXT,
				updated_at  INTEGER
			)`,
		},
	},
	{
		version: 2,
		stmts: []string{
			`CREATE VIEW IF NOT EXISTS v_track_perf_7d AS
			WITH recent AS (
				SELECT track_id, type, payload
				FROM events
				WHERE track_id IS NOT NULL AND track_id <> ''
				  AND ts >= (strftime('%s', 'now') - 7 * 86400) * 1000
			),
			agg AS (
				SELECT
					track_id,
					SUM(CASE WHEN type = 'impression' THEN 1 ELSE 0 END) AS impressions,
					SUM(CASE WHEN type = 'start' THEN 1 ELSE 0 END) AS starts,
					SUM(CASE WHEN type = 'like' THEN 1 ELSE 0 END) AS likes,
					SUM(CASE WHEN type = 'nope' THEN 1 ELSE 0 END) AS nopes,
					COALESCE(SUM(CAST(json_extract(payload, '$.ms_played_chunk') AS INTEGER)), 0) AS ms_played,
					AVG(CASE WHEN json_extract(payload, '$.play_ratio') IS NOT NULL
						THEN CAST(json_extract(payload, '$.play_ratio') AS REAL) END) AS avg_play_ratio
				FROM recent
				GROUP BY track_id
			)
			SELECT
				track_id,
				impressions,
				starts,
				likes,
				nopes,
				ms_played,
				CASE WHEN impressions > 0 THEN CAST(starts AS REAL) / impressions ELSE 0 END AS start_rate,
				CASE WHEN impressions > 0 THEN CAST(likes AS REAL) / impressions ELSE 0 END AS like_rate,
				CASE WHEN impressions > 0 THEN CAST(nopes AS REAL) / impressions ELSE 0 END AS nope_rate,
				COALESCE(avg_play_ratio, 0) AS avg_play_ratio,
				3.0 * (CASE WHEN impressions > 0 THEN CAST(likes AS REAL) / impressions ELSE 0 END)
				+ (CASE WHEN impressions > 0 THEN CAST(starts AS REAL) / impressions ELSE 0 END)
				- 2.0 * (CASE WHEN impressions > 0 THEN CAST(nopes AS REAL) / impressions ELSE 0 END)
				+ MIN(impressions, 100) / 100.0 AS score
			FROM agg`,
		},
	},
}

func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for _, migration := range migrations {
		var exists bool
		err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", migration.version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", migration.version, err)
		}
		if exists {
			continue
		}
		if err := applyMigration(db, migration.version, migration.stmts); err != nil {
			return fmt.Errorf("apply migration %d: %w", migration.version, err)
		}
	}
	return nil
}

func applyMigration(db *sql.DB, version int, stmts []string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("execute statement: %w", err)
		}
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}
