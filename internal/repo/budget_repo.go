// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the per-child
// time budget row.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-parental-backend/internal/domain"
)

// GetTimeBudget returns the budget row for childID or ErrNotFound.
func GetTimeBudget(ctx context.Context, db *gorm.DB, childID string) (*domain.ChildTimeBudget, error) {
	var b domain.ChildTimeBudget
	if err := db.WithContext(ctx).Where("child_id = ?", childID).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateTimeBudgetIfAbsent inserts a default (unlimited, seconds-based) row
// for childID unless one exists, then returns the stored row.
func CreateTimeBudgetIfAbsent(ctx context.Context, db *gorm.DB, childID string) (*domain.ChildTimeBudget, error) {
	now := time.Now().UTC()
	b := &domain.ChildTimeBudget{
		ID:           uuid.NewString(),
		ChildID:      childID,
		UnitsVersion: domain.BudgetUnitsSeconds,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "child_id"}}, DoNothing: true}).
		Create(b).Error
	if err != nil && !IsUniqueViolation(err) {
		return nil, err
	}
	return GetTimeBudget(ctx, db, childID)
}

// UpdateTimeBudget writes every budget field of b (zero values included).
// Returns ErrNotFound when the child has no row.
func UpdateTimeBudget(ctx context.Context, db *gorm.DB, b *domain.ChildTimeBudget) error {
	res := db.WithContext(ctx).
		Model(&domain.ChildTimeBudget{}).
		Where("child_id = ?", b.ChildID).
		Updates(budgetColumns(b))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ConvertTimeBudgetUnits writes b only while the stored row is still at
// UnitsVersion from, so a conversion computed from a stale read cannot
// overwrite a newer write. It reports whether the row was converted.
func ConvertTimeBudgetUnits(ctx context.Context, db *gorm.DB, b *domain.ChildTimeBudget, from int) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.ChildTimeBudget{}).
		Where("child_id = ? AND units_version = ?", b.ChildID, from).
		Updates(budgetColumns(b))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func budgetColumns(b *domain.ChildTimeBudget) map[string]any {
	return map[string]any{
		"daily_limit_seconds":    b.DailyLimitSeconds,
		"weekday_limit_seconds":  b.WeekdayLimitSeconds,
		"weekend_limit_seconds":  b.WeekendLimitSeconds,
		"session_limit_seconds":  b.SessionLimitSeconds,
		"break_every_seconds":    b.BreakEverySeconds,
		"break_duration_seconds": b.BreakDurationSeconds,
		"focus_mode_enabled":     b.FocusModeEnabled,
		"downtime_enabled":       b.DowntimeEnabled,
		"units_version":          b.UnitsVersion,
		"updated_at":             time.Now().UTC(),
	}
}
