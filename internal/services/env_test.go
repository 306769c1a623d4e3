package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-parental-backend/internal/classifier"
	"github.com/tbourn/go-parental-backend/internal/clock"
	"github.com/tbourn/go-parental-backend/internal/repo"
)

// Wednesday.
var testNow = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

func newMemDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// newFileDB returns a temp-file database on one connection for tests that
// run many goroutines against it.
func newFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db = db.Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// stubClassifier answers from a table and counts calls.
type stubClassifier struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	delay   time.Duration
	block   bool
	calls   atomic.Int64
}

func (s *stubClassifier) Classify(ctx context.Context, host string) (string, error) {
	s.calls.Add(1)
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.replies[host]; ok {
		return r, nil
	}
	return `{"category":"Reference","safetyScore":90}`, nil
}

func (s *stubClassifier) set(host, reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replies == nil {
		s.replies = map[string]string{}
	}
	s.replies[host] = reply
}

type stubVerifier struct{ password string }

func (v stubVerifier) VerifyPassword(_ context.Context, _ string, password string) error {
	if password != v.password {
		return fmt.Errorf("wrong password")
	}
	return nil
}

type testEnv struct {
	db       *gorm.DB
	clk      *clock.Fake
	cls      *stubClassifier
	catalog  *CatalogService
	quota    *QuotaService
	policy   *PolicyService
	usage    *UsageService
	grant    *GrantService
	rules    *RuleService
	reports  *ReportService
	parentID string
	childID  string
}

func newEnv(t *testing.T, db *gorm.DB) *testEnv {
	t.Helper()
	clk := clock.NewFake(testNow, time.UTC)
	cls := &stubClassifier{}
	locks := NewChildLocks()

	var c classifier.Classifier = cls
	catalog := NewCatalogService(db, c, clk, 200*time.Millisecond)
	quota := NewQuotaService(db, clk)
	pol := NewPolicyService(db, catalog, quota, clk, []string{"adult", "Gambling"})
	env := &testEnv{
		db:      db,
		clk:     clk,
		cls:     cls,
		catalog: catalog,
		quota:   quota,
		policy:  pol,
		usage:   NewUsageService(db, catalog, quota, pol, clk, locks),
		grant:   NewGrantService(db, quota, clk, locks, stubVerifier{password: "pw"}),
		rules:   NewRuleService(db, catalog, quota),
		reports: NewReportService(db),
	}

	ctx := context.Background()
	p, err := repo.CreateParent(ctx, db, "p-"+uuid.NewString()+"@example.com", "hash")
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	ch, err := repo.CreateChild(ctx, db, p.ID, "Kid")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	env.parentID, env.childID = p.ID, ch.ID
	return env
}

// setDailyLimit replaces the child's settings with a plain daily limit.
func (e *testEnv) setDailyLimit(t *testing.T, seconds int64) {
	t.Helper()
	if _, err := e.rules.ReplaceSettings(context.Background(), e.childID, Settings{Budget: Budget{DailyLimit: seconds}}); err != nil {
		t.Fatalf("ReplaceSettings: %v", err)
	}
}

// addUsage records seconds in today's bucket for category.
func (e *testEnv) addUsage(t *testing.T, category string, seconds int64) {
	t.Helper()
	ctx := context.Background()
	cat, err := repo.EnsureCategory(ctx, e.db, category)
	if err != nil {
		t.Fatalf("EnsureCategory: %v", err)
	}
	if err := repo.IncrementUsage(ctx, e.db, e.childID, cat.ID, clock.Today(e.clk), seconds); err != nil {
		t.Fatalf("IncrementUsage: %v", err)
	}
}
