package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/go-parental-backend/internal/domain"
	"github.com/tbourn/go-parental-backend/internal/repo"
)

func TestNormalizeDomain(t *testing.T) {
	cases := []struct {
		in, want string
		wantErr  bool
	}{
		{"https://www.YouTube.com/watch?v=1", "youtube.com", false},
		{"http://user:pw@news.example.org:8080/path", "news.example.org", false},
		{"example.com", "example.com", false},
		{"WWW.Example.com.", "example.com", false},
		{"  m.wikipedia.org/wiki/Go  ", "m.wikipedia.org", false},
		{"", "", true},
		{"https:///nohost", "", true},
	}
	for _, tc := range cases {
		got, err := NormalizeDomain(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("NormalizeDomain(%q) err = %v, want ErrInvalidInput", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("NormalizeDomain(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestResolve_ClassifiesOnceThenCaches(t *testing.T) {
	env := newEnv(t, newMemDB(t))
	env.cls.set("games.example.com", `{"category":"games","safetyScore":72.4,"tags":["Arcade"]}`)
	ctx := context.Background()

	first, err := env.catalog.Resolve(ctx, "https://www.games.example.com/play")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first.Domain != "games.example.com" || first.Category.Name != "Games" || first.SafetyScore != 72 {
		t.Fatalf("unexpected entry: %+v", first)
	}

	second, err := env.catalog.Resolve(ctx, "games.example.com")
	if err != nil {
		t.Fatalf("Resolve again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the cached row, got a new one")
	}
	if n := env.cls.calls.Load(); n != 1 {
		t.Fatalf("classifier calls = %d, want 1", n)
	}
}

func TestResolve_ProseWrappedReply(t *testing.T) {
	env := newEnv(t, newMemDB(t))
	env.cls.set("bet.example.com", `Sure! Here is my verdict: {"category": "gambling", "safetyScore": 12.6} Let me know.`)

	e, err := env.catalog.Resolve(context.Background(), "bet.example.com")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if e.Category.Name != "Gambling" || e.SafetyScore != 13 {
		t.Fatalf("got %s/%d, want Gambling/13", e.Category.Name, e.SafetyScore)
	}
}

func TestResolve_FailuresFallBackToUncategorized(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		env := newEnv(t, newMemDB(t))
		env.cls.err = errors.New("boom")
		e, err := env.catalog.Resolve(context.Background(), "down.example.com")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if e.Category.Name != domain.CategoryUncategorized || e.SafetyScore != domain.DefaultSafetyScore {
			t.Fatalf("got %s/%d", e.Category.Name, e.SafetyScore)
		}
	})
	t.Run("garbage", func(t *testing.T) {
		env := newEnv(t, newMemDB(t))
		env.cls.set("odd.example.com", "I cannot classify this.")
		e, err := env.catalog.Resolve(context.Background(), "odd.example.com")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if e.Category.Name != domain.CategoryUncategorized {
			t.Fatalf("got %s", e.Category.Name)
		}
	})
	t.Run("timeout", func(t *testing.T) {
		env := newEnv(t, newMemDB(t))
		env.cls.block = true
		env.catalog.Timeout = 20 * time.Millisecond
		start := time.Now()
		e, err := env.catalog.Resolve(context.Background(), "slow.example.com")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if e.Category.Name != domain.CategoryUncategorized {
			t.Fatalf("got %s", e.Category.Name)
		}
		if time.Since(start) > 5*time.Second {
			t.Fatalf("timeout not applied")
		}
	})
}

func TestResolve_ConcurrentFirstLookupsShareOneCall(t *testing.T) {
	env := newEnv(t, newFileDB(t))
	env.cls.delay = 30 * time.Millisecond
	ctx := context.Background()

	const n = 16
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := env.catalog.Resolve(ctx, "https://race.example.com/")
			errs[i] = err
			if e != nil {
				ids[i] = e.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range errs {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("goroutine %d saw entry %s, want %s", i, ids[i], ids[0])
		}
	}
	if got := env.cls.calls.Load(); got != 1 {
		t.Fatalf("classifier calls = %d, want 1", got)
	}
	if n, _ := repo.CountCatalogEntries(ctx, env.db); n != 1 {
		t.Fatalf("catalog rows = %d, want 1", n)
	}
}

func TestLookup_NeverClassifies(t *testing.T) {
	env := newEnv(t, newMemDB(t))
	e, cat, err := env.catalog.Lookup(context.Background(), "unknown.example.com")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if e != nil || cat.Name != domain.CategoryUncategorized {
		t.Fatalf("got entry=%v cat=%s", e, cat.Name)
	}
	if env.cls.calls.Load() != 0 {
		t.Fatalf("classifier must not be called")
	}
}

func TestEnsureCustom_AndReclassify(t *testing.T) {
	env := newEnv(t, newMemDB(t))
	ctx := context.Background()

	e, err := env.catalog.EnsureCustom(ctx, "family.example.com")
	if err != nil {
		t.Fatalf("EnsureCustom: %v", err)
	}
	if e.Category.Name != domain.CategoryCustom || e.SafetyScore != domain.DefaultSafetyScore {
		t.Fatalf("got %s/%d", e.Category.Name, e.SafetyScore)
	}
	if env.cls.calls.Load() != 0 {
		t.Fatalf("classifier must not be called for Custom entries")
	}

	env.cls.set("family.example.com", `{"category":"Kids","safetyScore":97}`)
	re, err := env.catalog.Reclassify(ctx, "family.example.com")
	if err != nil {
		t.Fatalf("Reclassify: %v", err)
	}
	if re.ID != e.ID || re.Category.Name != "Kids" || re.SafetyScore != 97 {
		t.Fatalf("unexpected reclassified entry: %+v", re)
	}

	// Unknown domains are created.
	fresh, err := env.catalog.Reclassify(ctx, "brand-new.example.com")
	if err != nil || fresh.Category.Name != "Reference" {
		t.Fatalf("Reclassify new = %+v, %v", fresh, err)
	}
}
