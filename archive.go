package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// BucketMinuteArchive is one archived minute-resolution aggregate for one
// target. Rows are upserted by the ingester's maintenance ticker, so the
// archive converges on the live minute buckets while they keep filling.
type BucketMinuteArchive struct {
	Target       string    `db:"target" json:"target"`
	TimeKey      string    `db:"time_key" json:"time_key"`
	Sent         int64     `db:"sent" json:"sent"`
	Received     int64     `db:"received" json:"received"`
	SuccessCount int64     `db:"success_count" json:"success_count"`
	FailCount    int64     `db:"fail_count" json:"fail_count"`
	AvgRTTMs     float64   `db:"avg_rtt_ms" json:"avg_rtt_ms"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// OutageArchive is one archived outage episode. The (target, start_key)
// pair identifies an episode; re-scans extend its end as long as the outage
// keeps growing.
type OutageArchive struct {
	Target      string  `db:"target" json:"target"`
	StartKey    string  `db:"start_key" json:"start"`
	EndKey      string  `db:"end_key" json:"end"`
	DurationSec int     `db:"duration_sec" json:"duration"`
	Sent        int64   `db:"sent" json:"sent"`
	Received    int64   `db:"received" json:"received"`
	LossPercent float64 `db:"loss_percent" json:"loss_percent"`
}

func Migrate(db *sql.DB, ctx context.Context, materialize bool) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("getting db connection: %w", err)
	}
	defer conn.Close()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS bucket_minute_archive (
			target VARCHAR NOT NULL,
			time_key VARCHAR NOT NULL,
			sent BIGINT NOT NULL,
			received BIGINT NOT NULL,
			success_count BIGINT NOT NULL,
			fail_count BIGINT NOT NULL,
			avg_rtt_ms DOUBLE NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (target, time_key)
		)`,
		`CREATE TABLE IF NOT EXISTS outage_archive (
			target VARCHAR NOT NULL,
			start_key VARCHAR NOT NULL,
			end_key VARCHAR NOT NULL,
			duration_sec INTEGER NOT NULL,
			sent BIGINT NOT NULL,
			received BIGINT NOT NULL,
			loss_percent DOUBLE NOT NULL,
			PRIMARY KEY (target, start_key)
		)`,
	}
	for _, statement := range statements {
		if _, err := conn.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
	}

	if materialize {
		// Force the catalog to be written out so a crash right after
		// startup does not leave an empty database file.
		if _, err := conn.ExecContext(ctx, `CHECKPOINT`); err != nil {
			return fmt.Errorf("checkpointing database: %w", err)
		}
	}

	return nil
}

// archiveMinuteBuckets upserts every live minute bucket of every target.
func archiveMinuteBuckets(ctx context.Context, db *sql.DB, views []targetView) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("getting db connection: %w", err)
	}
	defer conn.Close()

	now := time.Now().UTC()
	for _, view := range views {
		for _, key := range sortedKeys(view.minute) {
			stats := view.minute[key]
			_, err := conn.ExecContext(ctx, `
				INSERT INTO bucket_minute_archive
					(target, time_key, sent, received, success_count, fail_count, avg_rtt_ms, updated_at)
				VALUES
					(?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (target, time_key) DO UPDATE
				SET
					sent = EXCLUDED.sent,
					received = EXCLUDED.received,
					success_count = EXCLUDED.success_count,
					fail_count = EXCLUDED.fail_count,
					avg_rtt_ms = EXCLUDED.avg_rtt_ms,
					updated_at = EXCLUDED.updated_at
			`, view.target.Name, key, stats.Sent, stats.Received, stats.SuccessCount, stats.FailCount, stats.AvgRTT(), now)
			if err != nil {
				return fmt.Errorf("upserting minute bucket: %w", err)
			}
		}
	}
	return nil
}

// archiveOutages upserts the currently detected episodes. An episode that
// grew since the last scan keeps its (target, start_key) identity and gets
// its end, duration and totals refreshed.
func archiveOutages(ctx context.Context, db *sql.DB, episodes []OutageEpisode) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("getting db connection: %w", err)
	}
	defer conn.Close()

	for _, episode := range episodes {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO outage_archive
				(target, start_key, end_key, duration_sec, sent, received, loss_percent)
			VALUES
				(?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (target, start_key) DO UPDATE
			SET
				end_key = EXCLUDED.end_key,
				duration_sec = EXCLUDED.duration_sec,
				sent = EXCLUDED.sent,
				received = EXCLUDED.received,
				loss_percent = EXCLUDED.loss_percent
		`, episode.Host, episode.Start, episode.End, episode.Duration, episode.Sent, episode.Received, episode.LossPercent)
		if err != nil {
			return fmt.Errorf("upserting outage episode: %w", err)
		}
	}
	return nil
}

// queryMinuteHistory returns the archived minute aggregates of the last
// `hours` hours for every target, in chronological order.
func queryMinuteHistory(ctx context.Context, db *sql.DB, hours int) ([]BucketMinuteArchive, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting db connection: %w", err)
	}
	defer conn.Close()

	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour).Format(TimeKeyLayout)
	rows, err := conn.QueryContext(ctx, `
		SELECT target, time_key, sent, received, success_count, fail_count, avg_rtt_ms, updated_at
		FROM bucket_minute_archive
		WHERE time_key >= ?
		ORDER BY time_key ASC, target ASC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying minute archive: %w", err)
	}
	defer rows.Close()

	var results []BucketMinuteArchive
	for rows.Next() {
		var row BucketMinuteArchive
		if err := rows.Scan(&row.Target, &row.TimeKey, &row.Sent, &row.Received, &row.SuccessCount, &row.FailCount, &row.AvgRTTMs, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning minute archive row: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// queryOutageHistory returns archived outage episodes, most recent first.
func queryOutageHistory(ctx context.Context, db *sql.DB, limit int) ([]OutageArchive, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting db connection: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, `
		SELECT target, start_key, end_key, duration_sec, sent, received, loss_percent
		FROM outage_archive
		ORDER BY start_key DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying outage archive: %w", err)
	}
	defer rows.Close()

	var results []OutageArchive
	for rows.Next() {
		var row OutageArchive
		if err := rows.Scan(&row.Target, &row.StartKey, &row.EndKey, &row.DurationSec, &row.Sent, &row.Received, &row.LossPercent); err != nil {
			return nil, fmt.Errorf("scanning outage archive row: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
