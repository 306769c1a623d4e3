package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-parental-backend/internal/clock"
	"github.com/tbourn/go-parental-backend/internal/domain"
	"github.com/tbourn/go-parental-backend/internal/policy"
	"github.com/tbourn/go-parental-backend/internal/repo"
)

// legacyMinuteCeiling is the largest value a minute-based row could hold
// for a single day.
const legacyMinuteCeiling = 24 * 60

// DailyStatus is the global budget state of a child for the current day.
type DailyStatus struct {
	IsBlocked        bool  `json:"is_blocked"`
	UsedSeconds      int64 `json:"used_seconds"`
	LimitSeconds     int64 `json:"limit_seconds"`
	RemainingSeconds int64 `json:"remaining_seconds"`
	HasLimit         bool  `json:"has_limit"`
}

// QuotaService owns the per-child time budget row and the daily status
// derived from it.
type QuotaService struct {
	DB    *gorm.DB
	Clock clock.Clock
}

// NewQuotaService wires a QuotaService.
func NewQuotaService(db *gorm.DB, clk clock.Clock) *QuotaService {
	return &QuotaService{DB: db, Clock: clk}
}

// Budget returns the child's budget, creating a default row on first access
// and migrating legacy minute values in place exactly once.
func (s *QuotaService) Budget(ctx context.Context, db *gorm.DB, childID string) (*domain.ChildTimeBudget, error) {
	b, err := repo.GetTimeBudget(ctx, db, childID)
	if errors.Is(err, repo.ErrNotFound) {
		log.Debug().Str("child_id", childID).Msg("creating default time budget")
		return repo.CreateTimeBudgetIfAbsent(ctx, db, childID)
	}
	if err != nil {
		return nil, err
	}
	if b.UnitsVersion >= domain.BudgetUnitsSeconds {
		return b, nil
	}

	from := b.UnitsVersion
	minutes := looksLikeMinutes(b)
	if minutes {
		b.DailyLimitSeconds *= 60
		b.WeekdayLimitSeconds *= 60
		b.WeekendLimitSeconds *= 60
		b.SessionLimitSeconds *= 60
		b.BreakEverySeconds *= 60
		b.BreakDurationSeconds *= 60
	}
	b.UnitsVersion = domain.BudgetUnitsSeconds
	converted, err := repo.ConvertTimeBudgetUnits(ctx, db, b, from)
	if err != nil {
		return nil, err
	}
	if !converted {
		// Someone else converted or replaced the row since our read.
		return repo.GetTimeBudget(ctx, db, childID)
	}
	if minutes {
		log.Info().Str("child_id", childID).Msg("migrated legacy minute budget to seconds")
	}
	return b, nil
}

// looksLikeMinutes reports whether an unversioned row still holds minutes:
// no duration exceeds the minutes in a day.
func looksLikeMinutes(b *domain.ChildTimeBudget) bool {
	for _, v := range []int64{
		b.DailyLimitSeconds, b.WeekdayLimitSeconds, b.WeekendLimitSeconds,
		b.SessionLimitSeconds, b.BreakEverySeconds, b.BreakDurationSeconds,
	} {
		if v > legacyMinuteCeiling {
			return false
		}
	}
	return true
}

// EffectiveLimit returns today's global limit in seconds (0 = none). A
// non-zero weekend or weekday limit takes precedence over the plain daily
// limit on the matching days.
func (s *QuotaService) EffectiveLimit(b *domain.ChildTimeBudget) int64 {
	if clock.IsWeekend(s.Clock) {
		if b.WeekendLimitSeconds > 0 {
			return b.WeekendLimitSeconds
		}
	} else if b.WeekdayLimitSeconds > 0 {
		return b.WeekdayLimitSeconds
	}
	return b.DailyLimitSeconds
}

// Status returns the child's global daily status.
func (s *QuotaService) Status(ctx context.Context, childID string) (DailyStatus, error) {
	return s.status(ctx, s.DB, childID)
}

func (s *QuotaService) status(ctx context.Context, db *gorm.DB, childID string) (DailyStatus, error) {
	b, err := s.Budget(ctx, db, childID)
	if err != nil {
		return DailyStatus{}, err
	}
	used, err := repo.TotalUsageSeconds(ctx, db, childID, clock.Today(s.Clock))
	if err != nil {
		return DailyStatus{}, err
	}
	return newDailyStatus(s.EffectiveLimit(b), used), nil
}

func newDailyStatus(limit, used int64) DailyStatus {
	st := DailyStatus{UsedSeconds: used, LimitSeconds: limit, HasLimit: limit > 0}
	if st.HasLimit {
		st.RemainingSeconds = policy.Remaining(limit, used)
		st.IsBlocked = used >= limit
	}
	return st
}
