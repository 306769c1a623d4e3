package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-parental-backend/internal/domain"
)

func TestHistoryStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, _, err := HistoryStats(context.Background(), db, "kid"); err == nil {
		t.Fatalf("expected error due to missing visit_history table")
	}
}

func TestHistoryStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.VisitHistoryEvent{})
	count, last, err := HistoryStats(context.Background(), db, "kid")
	if err != nil {
		t.Fatalf("HistoryStats error: %v", err)
	}
	if count != 0 || last != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, last)
	}
}

func TestHistoryStats_Success_FilterAndMax(t *testing.T) {
	db := newTestDB(t, &domain.VisitHistoryEvent{})
	ctx := context.Background()

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max for kid
	t3 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)   // other child

	for _, ev := range []*domain.VisitHistoryEvent{
		{ChildID: "kid", Domain: "a", FullURL: "a", CategoryName: "c", ActionTaken: domain.HistoryAllowed, VisitedAt: t1},
		{ChildID: "kid", Domain: "b", FullURL: "b", CategoryName: "c", ActionTaken: domain.HistoryBlocked, VisitedAt: t2},
		{ChildID: "other", Domain: "c", FullURL: "c", CategoryName: "c", ActionTaken: domain.HistoryAllowed, VisitedAt: t3},
	} {
		if err := CreateVisit(ctx, db, ev); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	count, last, err := HistoryStats(ctx, db, "kid")
	if err != nil {
		t.Fatalf("HistoryStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if last == nil || !last.Equal(t2) {
		t.Fatalf("expected last visit %v, got %v", t2, last)
	}
}

// Force the second query (SELECT visited_at ...) to fail by renaming the column.
func TestHistoryStats_SelectLatest_ErrorPath(t *testing.T) {
	db := newTestDB(t, &domain.VisitHistoryEvent{})
	ctx := context.Background()
	if err := CreateVisit(ctx, db, &domain.VisitHistoryEvent{
		ChildID: "kerr", Domain: "a", FullURL: "a", CategoryName: "c",
		ActionTaken: domain.HistoryAllowed, VisitedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := db.Exec(`ALTER TABLE visit_history RENAME COLUMN visited_at TO visited_at_old`).Error; err != nil {
		t.Fatalf("rename column: %v", err)
	}
	if _, _, err := HistoryStats(ctx, db, "kerr"); err == nil {
		t.Fatalf("expected error from latest-visit select after column rename")
	}
}

func TestAlertsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Alert{})
	total, unsent, err := AlertsStats(context.Background(), db, "kid")
	if err != nil || total != 0 || unsent != 0 {
		t.Fatalf("expected zeros, got %d %d %v", total, unsent, err)
	}
}
