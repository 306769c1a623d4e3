package repo

import (
	"context"
	"sync"
	"testing"
	"time"
)

var testDay = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

func TestIncrementUsage_CreatesThenAccumulates(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	if err := IncrementUsage(ctx, db, "kid", "cat", testDay, 60); err != nil {
		t.Fatalf("first increment: %v", err)
	}
	if err := IncrementUsage(ctx, db, "kid", "cat", testDay, 45); err != nil {
		t.Fatalf("second increment: %v", err)
	}
	got, err := CategoryUsageSeconds(ctx, db, "kid", "cat", testDay)
	if err != nil || got != 105 {
		t.Fatalf("expected 105 seconds, got %d err=%v", got, err)
	}
	buckets, _ := ListUsageBuckets(ctx, db, "kid", testDay)
	if len(buckets) != 1 {
		t.Fatalf("expected a single bucket, got %d", len(buckets))
	}

	// Next day is a separate bucket.
	if err := IncrementUsage(ctx, db, "kid", "cat", testDay.AddDate(0, 0, 1), 10); err != nil {
		t.Fatalf("next day: %v", err)
	}
	if got, _ := CategoryUsageSeconds(ctx, db, "kid", "cat", testDay); got != 105 {
		t.Fatalf("other day leaked into today: %d", got)
	}
}

func TestIncrementUsage_ConcurrentHeartbeatsLoseNothing(t *testing.T) {
	db := newFileDB(t)
	ctx := context.Background()

	const workers, each = 10, 5
	var wg sync.WaitGroup
	errCh := make(chan error, workers*each)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				if err := IncrementUsage(ctx, db, "kid", "games", testDay, 7); err != nil {
					errCh <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("increment failed: %v", err)
	}

	got, err := CategoryUsageSeconds(ctx, db, "kid", "games", testDay)
	if err != nil {
		t.Fatalf("CategoryUsageSeconds: %v", err)
	}
	if want := int64(workers * each * 7); got != want {
		t.Fatalf("lost updates: got %d want %d", got, want)
	}
}

func TestTotalUsage_Breakdown_AndBucketMutations(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	games, _ := EnsureCategory(ctx, db, "Games")
	video, _ := EnsureCategory(ctx, db, "Video")

	_ = IncrementUsage(ctx, db, "kid", games.ID, testDay, 1000)
	_ = IncrementUsage(ctx, db, "kid", video.ID, testDay, 2000)
	_ = IncrementUsage(ctx, db, "other", video.ID, testDay, 99)

	total, err := TotalUsageSeconds(ctx, db, "kid", testDay)
	if err != nil || total != 3000 {
		t.Fatalf("expected total 3000, got %d err=%v", total, err)
	}

	rows, err := UsageBreakdown(ctx, db, "kid", testDay)
	if err != nil {
		t.Fatalf("UsageBreakdown: %v", err)
	}
	if len(rows) != 2 || rows[0].Category != "Video" || rows[0].Seconds != 2000 || rows[1].Category != "Games" {
		t.Fatalf("unexpected breakdown: %+v", rows)
	}

	buckets, _ := ListUsageBuckets(ctx, db, "kid", testDay)
	if len(buckets) != 2 || buckets[0].DurationSeconds != 2000 {
		t.Fatalf("buckets must be sorted by duration desc: %+v", buckets)
	}
	if err := SetBucketDuration(ctx, db, buckets[0].ID, 600); err != nil {
		t.Fatalf("SetBucketDuration: %v", err)
	}
	if err := DeleteBucket(ctx, db, buckets[1].ID); err != nil {
		t.Fatalf("DeleteBucket: %v", err)
	}
	if total, _ := TotalUsageSeconds(ctx, db, "kid", testDay); total != 600 {
		t.Fatalf("expected 600 after mutations, got %d", total)
	}

	n, err := DeleteUsageForDay(ctx, db, "kid", testDay)
	if err != nil || n != 1 {
		t.Fatalf("DeleteUsageForDay: n=%d err=%v", n, err)
	}
	if total, _ := TotalUsageSeconds(ctx, db, "other", testDay); total != 99 {
		t.Fatalf("reset must not touch other children, got %d", total)
	}
}
