package main

import (
	"context"
	"testing"
	"time"
)

func cleanupArchiveTables(t *testing.T) {
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		conn, err := db.Conn(ctx)
		if err != nil {
			t.Fatalf("failed to get db connection: %v", err)
		}
		defer conn.Close()
		if _, err := conn.ExecContext(ctx, `DELETE FROM bucket_minute_archive`); err != nil {
			t.Fatalf("failed to clean up bucket_minute_archive table: %v", err)
		}
		if _, err := conn.ExecContext(ctx, `DELETE FROM outage_archive`); err != nil {
			t.Fatalf("failed to clean up outage_archive table: %v", err)
		}
	})
}

func TestArchiveMinuteBuckets(t *testing.T) {
	cleanupArchiveTables(t)
	ctx := context.Background()

	minuteKey := MinuteKey(time.Now().UTC())
	views := []targetView{
		{
			target: Target{Name: "1.1.1.1:53/tcp"},
			minute: map[string]BucketStats{
				minuteKey: {Sent: 60, Received: 58, SuccessCount: 58, FailCount: 2, RTTSum: 580, RTTCount: 58},
			},
		},
	}

	if err := archiveMinuteBuckets(ctx, db, views); err != nil {
		t.Fatalf("failed to archive minute buckets: %v", err)
	}

	rows, err := queryMinuteHistory(ctx, db, 1)
	if err != nil {
		t.Fatalf("failed to query minute history: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 archived row, got %d", len(rows))
	}
	if rows[0].Target != "1.1.1.1:53/tcp" || rows[0].TimeKey != minuteKey {
		t.Errorf("Expected row for %s at %s, got %+v", "1.1.1.1:53/tcp", minuteKey, rows[0])
	}
	if rows[0].Sent != 60 || rows[0].Received != 58 {
		t.Errorf("Expected sent 60 received 58, got %+v", rows[0])
	}
	if rows[0].AvgRTTMs != 10 {
		t.Errorf("Expected avg rtt 10, got %f", rows[0].AvgRTTMs)
	}

	// The same minute re-archived while still filling refreshes the row
	// instead of duplicating it.
	views[0].minute[minuteKey] = BucketStats{Sent: 120, Received: 119, SuccessCount: 119, FailCount: 1, RTTSum: 1190, RTTCount: 119}
	if err := archiveMinuteBuckets(ctx, db, views); err != nil {
		t.Fatalf("failed to re-archive minute buckets: %v", err)
	}

	rows, err = queryMinuteHistory(ctx, db, 1)
	if err != nil {
		t.Fatalf("failed to query minute history: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected the upsert to keep 1 row, got %d", len(rows))
	}
	if rows[0].Sent != 120 {
		t.Errorf("Expected the refreshed sent count 120, got %d", rows[0].Sent)
	}
}

func TestArchiveOutages(t *testing.T) {
	cleanupArchiveTables(t)
	ctx := context.Background()

	episode := OutageEpisode{
		Host:        "1.1.1.1:53/tcp",
		Start:       "2025-05-01 12:00:00",
		End:         "2025-05-01 12:00:02",
		Duration:    3,
		Sent:        12,
		Received:    0,
		LossPercent: 100,
	}
	if err := archiveOutages(ctx, db, []OutageEpisode{episode}); err != nil {
		t.Fatalf("failed to archive outages: %v", err)
	}

	// The episode grows on the next scan and keeps its identity.
	episode.End = "2025-05-01 12:00:05"
	episode.Duration = 6
	episode.Sent = 24
	if err := archiveOutages(ctx, db, []OutageEpisode{episode}); err != nil {
		t.Fatalf("failed to re-archive outages: %v", err)
	}

	rows, err := queryOutageHistory(ctx, db, 10)
	if err != nil {
		t.Fatalf("failed to query outage history: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 archived episode, got %d", len(rows))
	}
	if rows[0].EndKey != "2025-05-01 12:00:05" || rows[0].DurationSec != 6 {
		t.Errorf("Expected the grown episode, got %+v", rows[0])
	}
}

func TestQueryOutageHistoryOrdering(t *testing.T) {
	cleanupArchiveTables(t)
	ctx := context.Background()

	episodes := []OutageEpisode{
		{Host: "1.1.1.1:53/tcp", Start: "2025-05-01 12:00:00", End: "2025-05-01 12:00:00", Duration: 1, Sent: 4, LossPercent: 100},
		{Host: "1.1.1.1:53/tcp", Start: "2025-05-01 13:00:00", End: "2025-05-01 13:00:00", Duration: 1, Sent: 4, LossPercent: 100},
		{Host: "8.8.8.8:53/udp", Start: "2025-05-01 12:30:00", End: "2025-05-01 12:30:00", Duration: 1, Sent: 4, LossPercent: 100},
	}
	if err := archiveOutages(ctx, db, episodes); err != nil {
		t.Fatalf("failed to archive outages: %v", err)
	}

	rows, err := queryOutageHistory(ctx, db, 2)
	if err != nil {
		t.Fatalf("failed to query outage history: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected the limit to cap at 2 rows, got %d", len(rows))
	}
	if rows[0].StartKey != "2025-05-01 13:00:00" {
		t.Errorf("Expected the most recent episode first, got %s", rows[0].StartKey)
	}
	if rows[1].StartKey != "2025-05-01 12:30:00" {
		t.Errorf("Expected the second most recent episode next, got %s", rows[1].StartKey)
	}
}
