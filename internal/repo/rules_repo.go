// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for per-child
// category rules, URL rules, and app limits.
//
// Upserts are single statements keyed by the natural unique index, so two
// concurrent writers for the same (child, category) or (child, domain)
// never produce duplicate rows.
package repo

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-parental-backend/internal/domain"
)

// GetCategoryRule returns the rule for (childID, categoryID) or ErrNotFound.
func GetCategoryRule(ctx context.Context, db *gorm.DB, childID, categoryID string) (*domain.ChildCategoryRule, error) {
	var r domain.ChildCategoryRule
	err := db.WithContext(ctx).
		Preload("Category").
		Where("child_id = ? AND category_id = ?", childID, categoryID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpsertCategoryRule creates or replaces the rule for (childID, categoryID).
func UpsertCategoryRule(ctx context.Context, db *gorm.DB, childID, categoryID string, status domain.RuleStatus, origin domain.RuleOrigin, limitMinutes *int) (*domain.ChildCategoryRule, error) {
	now := time.Now().UTC()
	r := &domain.ChildCategoryRule{
		ID:           uuid.NewString(),
		ChildID:      childID,
		CategoryID:   categoryID,
		Status:       status,
		Origin:       origin,
		LimitMinutes: limitMinutes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "child_id"}, {Name: "category_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "origin", "limit_minutes", "updated_at"}),
		}).
		Create(r).Error
	if err != nil {
		return nil, err
	}
	return GetCategoryRule(ctx, db, childID, categoryID)
}

// CreateCategoryRuleIfAbsent inserts a rule only when the child has none for
// that category. It reports whether a row was inserted.
func CreateCategoryRuleIfAbsent(ctx context.Context, db *gorm.DB, childID, categoryID string, status domain.RuleStatus, origin domain.RuleOrigin) (bool, error) {
	now := time.Now().UTC()
	r := &domain.ChildCategoryRule{
		ID:         uuid.NewString(),
		ChildID:    childID,
		CategoryID: categoryID,
		Status:     status,
		Origin:     origin,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	res := db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "child_id"}, {Name: "category_id"}},
			DoNothing: true,
		}).
		Create(r)
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteCategoryRule removes the rule for (childID, categoryID).
// Returns ErrNotFound if there was nothing to delete.
func DeleteCategoryRule(ctx context.Context, db *gorm.DB, childID, categoryID string) error {
	res := db.WithContext(ctx).
		Where("child_id = ? AND category_id = ?", childID, categoryID).
		Delete(&domain.ChildCategoryRule{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCategoryRules returns all category rules for a child with categories
// preloaded, ordered by category name.
func ListCategoryRules(ctx context.Context, db *gorm.DB, childID string) ([]domain.ChildCategoryRule, error) {
	var out []domain.ChildCategoryRule
	err := db.WithContext(ctx).
		Preload("Category").
		Where("child_id = ?", childID).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Category.Name < out[j].Category.Name })
	return out, nil
}

// GetURLRule returns the rule for (childID, domainID) or ErrNotFound.
func GetURLRule(ctx context.Context, db *gorm.DB, childID, domainID string) (*domain.ChildURLRule, error) {
	var r domain.ChildURLRule
	err := db.WithContext(ctx).
		Preload("Domain.Category").
		Where("child_id = ? AND domain_id = ?", childID, domainID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpsertURLRule creates or replaces the rule for (childID, domainID).
func UpsertURLRule(ctx context.Context, db *gorm.DB, childID, domainID string, status domain.RuleStatus, origin domain.RuleOrigin, limitMinutes *int) (*domain.ChildURLRule, error) {
	now := time.Now().UTC()
	r := &domain.ChildURLRule{
		ID:           uuid.NewString(),
		ChildID:      childID,
		DomainID:     domainID,
		Status:       status,
		Origin:       origin,
		LimitMinutes: limitMinutes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "child_id"}, {Name: "domain_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "origin", "limit_minutes", "updated_at"}),
		}).
		Create(r).Error
	if err != nil {
		return nil, err
	}
	return GetURLRule(ctx, db, childID, domainID)
}

// DeleteURLRule removes the rule for (childID, domainID).
// Returns ErrNotFound if there was nothing to delete.
func DeleteURLRule(ctx context.Context, db *gorm.DB, childID, domainID string) error {
	res := db.WithContext(ctx).
		Where("child_id = ? AND domain_id = ?", childID, domainID).
		Delete(&domain.ChildURLRule{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListURLRules returns all URL rules for a child with their catalog entries
// preloaded, newest first.
func ListURLRules(ctx context.Context, db *gorm.DB, childID string) ([]domain.ChildURLRule, error) {
	var out []domain.ChildURLRule
	err := db.WithContext(ctx).
		Preload("Domain.Category").
		Where("child_id = ?", childID).
		Order("updated_at DESC").
		Find(&out).Error
	return out, err
}

// GetAppLimit returns the app limit for (childID, domainID) or ErrNotFound.
func GetAppLimit(ctx context.Context, db *gorm.DB, childID, domainID string) (*domain.ChildAppLimit, error) {
	var l domain.ChildAppLimit
	err := db.WithContext(ctx).
		Where("child_id = ? AND domain_id = ?", childID, domainID).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListAppLimits returns all app limits for a child with domains preloaded.
func ListAppLimits(ctx context.Context, db *gorm.DB, childID string) ([]domain.ChildAppLimit, error) {
	var out []domain.ChildAppLimit
	err := db.WithContext(ctx).
		Preload("Domain").
		Where("child_id = ?", childID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// ReplaceAppLimits deletes every app limit of the child and inserts limits.
// Callers run it inside a transaction.
func ReplaceAppLimits(ctx context.Context, db *gorm.DB, childID string, limits []domain.ChildAppLimit) error {
	if err := db.WithContext(ctx).Where("child_id = ?", childID).Delete(&domain.ChildAppLimit{}).Error; err != nil {
		return err
	}
	if len(limits) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]domain.ChildAppLimit, 0, len(limits))
	for _, l := range limits {
		rows = append(rows, domain.ChildAppLimit{
			ID:           uuid.NewString(),
			ChildID:      childID,
			DomainID:     l.DomainID,
			LimitMinutes: l.LimitMinutes,
			CreatedAt:    now,
		})
	}
	return db.WithContext(ctx).Omit(clause.Associations).Create(&rows).Error
}
