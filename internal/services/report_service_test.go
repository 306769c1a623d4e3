package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestHistory_PagingAndETag(t *testing.T) {
	env := newEnv(t, newMemDB(t))
	ctx := context.Background()

	etag0, err := env.reports.HistoryETag(ctx, env.childID)
	if err != nil {
		t.Fatalf("HistoryETag: %v", err)
	}
	if want := fmt.Sprintf(`W/"history:%s:0:0"`, env.childID); etag0 != want {
		t.Fatalf("empty etag = %s, want %s", etag0, want)
	}

	for i := 0; i < 5; i++ {
		if _, err := env.policy.Check(ctx, env.childID, fmt.Sprintf("site%d.example.com", i), false); err != nil {
			t.Fatalf("Check: %v", err)
		}
		env.clk.Advance(time.Minute)
	}

	page, err := env.reports.History(ctx, env.childID, 2, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if page.Total != 5 || len(page.Items) != 2 || page.Items[0].Domain != "site2.example.com" {
		t.Fatalf("unexpected page: total=%d items=%+v", page.Total, page.Items)
	}

	etag1, _ := env.reports.HistoryETag(ctx, env.childID)
	if etag1 == etag0 {
		t.Fatalf("etag must change with history")
	}

	if _, err := env.reports.History(ctx, "ghost", 1, 10); !errors.Is(err, ErrChildNotFound) {
		t.Fatalf("expected ErrChildNotFound, got %v", err)
	}
}

func TestAlerts_ListAndMarkSent(t *testing.T) {
	env := newEnv(t, newMemDB(t))
	env.cls.set("bad1.example.com", `{"category":"Malware","safetyScore":3}`)
	env.cls.set("bad2.example.com", `{"category":"Malware","safetyScore":4}`)
	ctx := context.Background()

	for _, u := range []string{"bad1.example.com", "bad2.example.com"} {
		if _, err := env.policy.Check(ctx, env.childID, u, false); err != nil {
			t.Fatalf("Check: %v", err)
		}
	}

	sum, err := env.reports.Alerts(ctx, env.childID, true, 0)
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if sum.Total != 2 || sum.Unsent != 2 || len(sum.Items) != 2 {
		t.Fatalf("unexpected: %+v", sum)
	}

	n, err := env.reports.MarkAlertsSent(ctx, env.childID, []string{sum.Items[0].ID})
	if err != nil || n != 1 {
		t.Fatalf("MarkAlertsSent = %d, %v", n, err)
	}
	n, _ = env.reports.MarkAlertsSent(ctx, env.childID, nil)
	if n != 1 {
		t.Fatalf("mark all = %d, want 1", n)
	}
	sum, _ = env.reports.Alerts(ctx, env.childID, true, 0)
	if sum.Unsent != 0 || len(sum.Items) != 0 {
		t.Fatalf("expected no unsent alerts: %+v", sum)
	}
}
