// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for daily usage
// buckets, the unit of quota accounting.
//
// Increments are a single INSERT .. ON CONFLICT DO UPDATE statement so that
// concurrent heartbeats for the same (child, category, day) never lose
// updates. Day values must already be normalized to local midnight
// expressed in UTC (see clock.Today).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-parental-backend/internal/domain"
)

// CategoryUsage is one row of a per-category usage breakdown.
type CategoryUsage struct {
	CategoryID string `json:"category_id"`
	Category   string `json:"category"`
	Seconds    int64  `json:"seconds"`
}

// IncrementUsage atomically adds seconds to the bucket for
// (childID, categoryID, day), creating it when absent.
func IncrementUsage(ctx context.Context, db *gorm.DB, childID, categoryID string, day time.Time, seconds int64) error {
	now := time.Now().UTC()
	b := &domain.DailyUsageBucket{
		ID:              uuid.NewString(),
		ChildID:         childID,
		CategoryID:      categoryID,
		Date:            day,
		DurationSeconds: seconds,
		UpdatedAt:       now,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "child_id"}, {Name: "category_id"}, {Name: "date"}},
			DoUpdates: clause.Assignments(map[string]any{
				"duration_seconds": gorm.Expr("daily_usage_buckets.duration_seconds + excluded.duration_seconds"),
				"updated_at":       now,
			}),
		}).
		Create(b).Error
}

// CategoryUsageSeconds returns the recorded seconds for one category on day.
func CategoryUsageSeconds(ctx context.Context, db *gorm.DB, childID, categoryID string, day time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.DailyUsageBucket{}).
		Where("child_id = ? AND category_id = ? AND date = ?", childID, categoryID, day).
		Select("COALESCE(SUM(duration_seconds), 0)").
		Scan(&total).Error
	return total, err
}

// TotalUsageSeconds returns the recorded seconds across all categories on day.
func TotalUsageSeconds(ctx context.Context, db *gorm.DB, childID string, day time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.DailyUsageBucket{}).
		Where("child_id = ? AND date = ?", childID, day).
		Select("COALESCE(SUM(duration_seconds), 0)").
		Scan(&total).Error
	return total, err
}

// ListUsageBuckets returns the child's buckets for day, largest first.
// Ties are broken by ID so the order is deterministic.
func ListUsageBuckets(ctx context.Context, db *gorm.DB, childID string, day time.Time) ([]domain.DailyUsageBucket, error) {
	var out []domain.DailyUsageBucket
	err := db.WithContext(ctx).
		Where("child_id = ? AND date = ?", childID, day).
		Order("duration_seconds DESC").
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// UsageBreakdown returns per-category seconds for day, largest first.
func UsageBreakdown(ctx context.Context, db *gorm.DB, childID string, day time.Time) ([]CategoryUsage, error) {
	var out []CategoryUsage
	err := db.WithContext(ctx).
		Table("daily_usage_buckets AS b").
		Select("b.category_id AS category_id, c.name AS category, b.duration_seconds AS seconds").
		Joins("JOIN categories c ON c.id = b.category_id").
		Where("b.child_id = ? AND b.date = ?", childID, day).
		Order("b.duration_seconds DESC").
		Scan(&out).Error
	return out, err
}

// SetBucketDuration overwrites a bucket's duration. seconds must be > 0;
// use DeleteBucket to drop a bucket.
func SetBucketDuration(ctx context.Context, db *gorm.DB, id string, seconds int64) error {
	return db.WithContext(ctx).
		Model(&domain.DailyUsageBucket{}).
		Where("id = ?", id).
		Updates(map[string]any{"duration_seconds": seconds, "updated_at": time.Now().UTC()}).Error
}

// DeleteBucket removes one bucket by ID.
func DeleteBucket(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.DailyUsageBucket{}).Error
}

// DeleteUsageForDay removes every bucket of the child for day and returns
// the number of rows deleted.
func DeleteUsageForDay(ctx context.Context, db *gorm.DB, childID string, day time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("child_id = ? AND date = ?", childID, day).
		Delete(&domain.DailyUsageBucket{})
	return res.RowsAffected, res.Error
}
