package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-parental-backend/internal/clock"
	"github.com/tbourn/go-parental-backend/internal/domain"
	"github.com/tbourn/go-parental-backend/internal/observability"
	"github.com/tbourn/go-parental-backend/internal/policy"
	"github.com/tbourn/go-parental-backend/internal/repo"
)

const (
	// DefaultSessionWindow is how recent a visit must be to absorb a heartbeat.
	DefaultSessionWindow = 5 * time.Minute
	// DefaultMaxIncrement caps the seconds a single heartbeat may report.
	DefaultMaxIncrement = 300
	// DefaultIncrement is used when a heartbeat carries no usable value.
	DefaultIncrement = 60

	heartbeatScope = "heartbeat"
)

// Heartbeat statuses.
const (
	HeartbeatOK    = "OK"
	HeartbeatBlock = "BLOCK"
)

var errReplayed = errors.New("heartbeat already recorded")

// HeartbeatResult is returned after a heartbeat is recorded. Remaining is
// the category budget left when the category is limited, otherwise the
// global budget left, or nil when neither applies.
type HeartbeatResult struct {
	Status           string        `json:"status"`
	Reason           policy.Reason `json:"reason"`
	RemainingSeconds *int64        `json:"remaining_seconds"`
	RecordedSeconds  int64         `json:"recorded_seconds"`
	Domain           string        `json:"domain"`
	Category         string        `json:"category"`
	Replayed         bool          `json:"replayed,omitempty"`
}

// UsageService attributes reported time to daily category buckets and to
// coalesced history rows.
type UsageService struct {
	DB      *gorm.DB
	Catalog *CatalogService
	Quota   *QuotaService
	Policy  *PolicyService
	Clock   clock.Clock
	Locks   *ChildLocks

	SessionWindow    time.Duration
	MaxIncrement     int64
	DefaultIncrement int64
	IdempotencyTTL   time.Duration
}

// NewUsageService wires a UsageService with default tuning.
func NewUsageService(db *gorm.DB, catalog *CatalogService, quota *QuotaService, pol *PolicyService, clk clock.Clock, locks *ChildLocks) *UsageService {
	return &UsageService{
		DB:               db,
		Catalog:          catalog,
		Quota:            quota,
		Policy:           pol,
		Clock:            clk,
		Locks:            locks,
		SessionWindow:    DefaultSessionWindow,
		MaxIncrement:     DefaultMaxIncrement,
		DefaultIncrement: DefaultIncrement,
		IdempotencyTTL:   24 * time.Hour,
	}
}

// ClampIncrement maps a reported duration into (0, MaxIncrement]. Values
// that are not positive fall back to DefaultIncrement.
func (s *UsageService) ClampIncrement(seconds int64) int64 {
	if seconds <= 0 {
		seconds = s.DefaultIncrement
	}
	if seconds > s.MaxIncrement {
		seconds = s.MaxIncrement
	}
	return seconds
}

// Heartbeat records seconds of usage on rawURL for childID and reports
// whether the category budget is now exhausted. A non-empty idempotency
// key makes retries of the same report count once.
func (s *UsageService) Heartbeat(ctx context.Context, childID, rawURL string, seconds int64, idempotencyKey string) (*HeartbeatResult, error) {
	tr := otel.Tracer("services/UsageService")
	ctx, span := tr.Start(ctx, "Heartbeat",
		trace.WithAttributes(attribute.String("child.id", childID)),
	)
	defer span.End()

	if err := requireChild(ctx, s.DB, childID); err != nil {
		return nil, err
	}
	host, err := NormalizeDomain(rawURL)
	if err != nil {
		return nil, err
	}
	inc := s.ClampIncrement(seconds)

	// Read-only: heartbeats never trigger a classification.
	entry, cat, err := s.Catalog.Lookup(ctx, host)
	if err != nil {
		return nil, err
	}

	replayed := false
	if idempotencyKey != "" {
		if _, err := repo.GetIdempotency(ctx, s.DB, childID, heartbeatScope, idempotencyKey, s.Clock.Now()); err == nil {
			replayed = true
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}

	if !replayed {
		err = s.record(ctx, childID, host, rawURL, cat.ID, cat.Name, inc, idempotencyKey)
		if errors.Is(err, errReplayed) {
			replayed = true
		} else if err != nil {
			return nil, err
		}
	}

	res, err := s.evaluate(ctx, childID, entry, cat)
	if err != nil {
		return nil, err
	}
	res.Replayed = replayed
	if !replayed {
		res.RecordedSeconds = inc
		observability.HeartbeatSeconds.Add(float64(inc))
	}
	return res, nil
}

func (s *UsageService) record(ctx context.Context, childID, host, rawURL, categoryID, categoryName string, inc int64, key string) error {
	unlock := s.Locks.Lock(childID)
	defer unlock()

	now := s.Clock.Now()
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if key != "" {
			if _, err := repo.PurgeExpiredIdempotency(ctx, tx, now); err != nil {
				return err
			}
			if _, err := repo.CreateIdempotency(ctx, tx, childID, heartbeatScope, key, http.StatusOK, now, s.IdempotencyTTL); err != nil {
				if errors.Is(err, repo.ErrDuplicate) {
					return errReplayed
				}
				return err
			}
		}

		if err := repo.IncrementUsage(ctx, tx, childID, categoryID, clock.Today(s.Clock), inc); err != nil {
			return err
		}

		last, err := repo.LatestVisitSince(ctx, tx, childID, host, now.Add(-s.SessionWindow))
		switch {
		case err == nil:
			return repo.ExtendVisit(ctx, tx, last.ID, inc, rawURL, now)
		case errors.Is(err, repo.ErrNotFound):
			return repo.CreateVisit(ctx, tx, &domain.VisitHistoryEvent{
				ChildID:         childID,
				Domain:          host,
				FullURL:         rawURL,
				CategoryName:    categoryName,
				ActionTaken:     domain.HistoryAllowed,
				DurationSeconds: inc,
				VisitedAt:       now,
			})
		default:
			return err
		}
	})
}

// evaluate applies only the budget rules; safety and parent rules were
// already enforced when the page was checked.
func (s *UsageService) evaluate(ctx context.Context, childID string, entry *domain.DomainCatalogEntry, cat *domain.Category) (*HeartbeatResult, error) {
	in := policy.Input{Category: cat.Name}
	rule, err := loadCategoryRule(ctx, s.DB, childID, cat.ID)
	if err != nil {
		return nil, err
	}
	in.CategoryRule = rule
	if in.CategoryUsedSeconds, err = repo.CategoryUsageSeconds(ctx, s.DB, childID, cat.ID, clock.Today(s.Clock)); err != nil {
		return nil, err
	}

	res := &HeartbeatResult{Status: HeartbeatOK, Reason: policy.ReasonNone, Category: cat.Name}
	if entry != nil {
		res.Domain = entry.Domain
		if in.AppLimitSeconds, in.AppUsedSeconds, err = s.Policy.appUsage(ctx, s.DB, childID, entry); err != nil {
			return nil, err
		}
	}

	v := policy.Run([]policy.Rule{policy.CategoryBudgetRule, policy.AppBudgetRule}, in)
	if v.Blocked() {
		res.Status, res.Reason = HeartbeatBlock, v.Reason
	}

	if _, rem, ok := policy.CategoryBudget(rule, in.CategoryUsedSeconds); ok {
		res.RemainingSeconds = &rem
		return res, nil
	}
	st, err := s.Quota.Status(ctx, childID)
	if err != nil {
		return nil, err
	}
	if st.HasLimit {
		rem := st.RemainingSeconds
		res.RemainingSeconds = &rem
	}
	return res, nil
}

// Seen reports whether a heartbeat with key was already recorded for the
// child and is still inside its retention window at now.
func (s *UsageService) Seen(ctx context.Context, childID, key string, now time.Time) (bool, error) {
	_, err := repo.GetIdempotency(ctx, s.DB, childID, heartbeatScope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ResetToday deletes the child's usage buckets for the current day.
func (s *UsageService) ResetToday(ctx context.Context, childID string) (int64, error) {
	if err := requireChild(ctx, s.DB, childID); err != nil {
		return 0, err
	}
	unlock := s.Locks.Lock(childID)
	defer unlock()

	n, err := repo.DeleteUsageForDay(ctx, s.DB, childID, clock.Today(s.Clock))
	if err != nil {
		return 0, err
	}
	log.Info().Str("child_id", childID).Int64("buckets", n).Msg("usage reset for today")
	return n, nil
}

// Breakdown returns today's usage per category.
func (s *UsageService) Breakdown(ctx context.Context, childID string) ([]repo.CategoryUsage, error) {
	if err := requireChild(ctx, s.DB, childID); err != nil {
		return nil, err
	}
	return repo.UsageBreakdown(ctx, s.DB, childID, clock.Today(s.Clock))
}
