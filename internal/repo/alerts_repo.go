// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for parent alerts.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-parental-backend/internal/domain"
)

// CreateAlert inserts an unsent alert for childID.
func CreateAlert(ctx context.Context, db *gorm.DB, childID, typ, message string, at time.Time) (*domain.Alert, error) {
	a := &domain.Alert{
		ID:        uuid.NewString(),
		ChildID:   childID,
		Type:      typ,
		Message:   message,
		CreatedAt: at.UTC(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// ListAlerts returns the child's alerts newest first, optionally only the
// unsent ones. limit <= 0 means no limit.
func ListAlerts(ctx context.Context, db *gorm.DB, childID string, unsentOnly bool, limit int) ([]domain.Alert, error) {
	q := db.WithContext(ctx).Where("child_id = ?", childID)
	if unsentOnly {
		q = q.Where("is_sent = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.Alert
	err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error
	return out, err
}

// MarkAlertsSent flags alerts as delivered. With no ids, every unsent alert
// of the child is flagged. Returns the number of rows changed.
func MarkAlertsSent(ctx context.Context, db *gorm.DB, childID string, ids []string) (int64, error) {
	q := db.WithContext(ctx).
		Model(&domain.Alert{}).
		Where("child_id = ? AND is_sent = ?", childID, false)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	res := q.Update("is_sent", true)
	return res.RowsAffected, res.Error
}
