// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the visit
// history log.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-parental-backend/internal/domain"
)

// CreateVisit appends a history event. ID is assigned when empty.
func CreateVisit(ctx context.Context, db *gorm.DB, ev *domain.VisitHistoryEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.VisitedAt = ev.VisitedAt.UTC()
	return db.WithContext(ctx).Create(ev).Error
}

// LatestVisitSince returns the most recent event for (childID, host) with
// visited_at >= since, or ErrNotFound.
func LatestVisitSince(ctx context.Context, db *gorm.DB, childID, host string, since time.Time) (*domain.VisitHistoryEvent, error) {
	var ev domain.VisitHistoryEvent
	err := db.WithContext(ctx).
		Where("child_id = ? AND domain = ? AND visited_at >= ?", childID, host, since.UTC()).
		Order("visited_at DESC").
		First(&ev).Error
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ExtendVisit adds seconds to an event and refreshes its URL and timestamp.
func ExtendVisit(ctx context.Context, db *gorm.DB, id string, seconds int64, fullURL string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.VisitHistoryEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"duration_seconds": gorm.Expr("duration_seconds + ?", seconds),
			"full_url":         fullURL,
			"visited_at":       at.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListVisitsPage returns a page of the child's history, newest first.
func ListVisitsPage(ctx context.Context, db *gorm.DB, childID string, offset, limit int) ([]domain.VisitHistoryEvent, error) {
	var out []domain.VisitHistoryEvent
	err := db.WithContext(ctx).
		Where("child_id = ?", childID).
		Order("visited_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountVisits returns the total number of history events for a child.
func CountVisits(ctx context.Context, db *gorm.DB, childID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.VisitHistoryEvent{}).
		Where("child_id = ?", childID).
		Count(&n).Error
	return n, err
}

// DomainUsageSeconds sums recorded durations for (childID, host) over
// visits in [from, to).
func DomainUsageSeconds(ctx context.Context, db *gorm.DB, childID, host string, from, to time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.VisitHistoryEvent{}).
		Where("child_id = ? AND domain = ? AND visited_at >= ? AND visited_at < ?", childID, host, from.UTC(), to.UTC()).
		Select("COALESCE(SUM(duration_seconds), 0)").
		Scan(&total).Error
	return total, err
}
