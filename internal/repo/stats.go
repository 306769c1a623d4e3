// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-parental-backend/internal/domain"
)

// HistoryStats returns aggregate metadata for a child's visit history: the
// total number of rows and the latest VisitedAt among those rows.
//
// Coalescing refreshes visited_at in place, so the pair changes whenever a
// page of history could have changed. When the child has no history, the
// returned count is 0 and lastVisitedAt is nil.
func HistoryStats(ctx context.Context, db *gorm.DB, childID string) (count int64, lastVisitedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.VisitHistoryEvent{}).Where("child_id = ?", childID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest visited_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		VisitedAt time.Time
	}
	if err = q.Select("visited_at").Order("visited_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.VisitedAt, nil
}

// AlertsStats returns the number of alerts for a child and how many of them
// are still unsent.
func AlertsStats(ctx context.Context, db *gorm.DB, childID string) (total, unsent int64, err error) {
	q := db.WithContext(ctx).Model(&domain.Alert{}).Where("child_id = ?", childID)
	if err = q.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if total == 0 {
		return 0, 0, nil
	}
	err = db.WithContext(ctx).Model(&domain.Alert{}).
		Where("child_id = ? AND is_sent = ?", childID, false).
		Count(&unsent).Error
	return total, unsent, err
}
