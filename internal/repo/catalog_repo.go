// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the shared
// domain catalog and the category definitions it references.
//
// Inserts are race-safe: concurrent writers of the same domain (or category
// name) both succeed, and the loser re-reads the winner's row.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-parental-backend/internal/domain"
)

// GetCategoryByName returns a category by exact name or ErrNotFound.
func GetCategoryByName(ctx context.Context, db *gorm.DB, name string) (*domain.Category, error) {
	var c domain.Category
	if err := db.WithContext(ctx).Where("name = ?", name).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// EnsureCategory returns the category with the given name, creating it when
// missing. A concurrent creator wins silently and its row is returned.
func EnsureCategory(ctx context.Context, db *gorm.DB, name string) (*domain.Category, error) {
	if c, err := GetCategoryByName(ctx, db, name); err == nil {
		return c, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	c := &domain.Category{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(c).Error
	if err != nil && !IsUniqueViolation(err) {
		return nil, err
	}
	return GetCategoryByName(ctx, db, name)
}

// ListCategories returns all known categories ordered by name.
func ListCategories(ctx context.Context, db *gorm.DB) ([]domain.Category, error) {
	var out []domain.Category
	err := db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

// GetCatalogEntry returns the catalog row for a normalized domain with its
// category preloaded, or ErrNotFound.
func GetCatalogEntry(ctx context.Context, db *gorm.DB, host string) (*domain.DomainCatalogEntry, error) {
	var e domain.DomainCatalogEntry
	err := db.WithContext(ctx).
		Preload("Category").
		Where("domain = ?", host).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// InsertCatalogEntry stores a verdict for host unless a row already exists.
// It returns the persisted row (the caller's or the concurrent winner's) and
// whether this call created it.
func InsertCatalogEntry(ctx context.Context, db *gorm.DB, host, categoryID string, score int, tags []string, at time.Time) (*domain.DomainCatalogEntry, bool, error) {
	e := &domain.DomainCatalogEntry{
		ID:           uuid.NewString(),
		Domain:       host,
		CategoryID:   categoryID,
		SafetyScore:  score,
		Tags:         tagsJSON(tags),
		ClassifiedAt: at.UTC(),
		CreatedAt:    at.UTC(),
		UpdatedAt:    at.UTC(),
	}
	res := db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "domain"}}, DoNothing: true}).
		Create(e)
	if res.Error != nil && !IsUniqueViolation(res.Error) {
		return nil, false, res.Error
	}
	created := res.Error == nil && res.RowsAffected == 1

	got, err := GetCatalogEntry(ctx, db, host)
	if err != nil {
		return nil, false, err
	}
	return got, created && got.ID == e.ID, nil
}

// UpdateCatalogClassification overwrites the verdict of an existing entry.
// Only operator re-classification calls this.
func UpdateCatalogClassification(ctx context.Context, db *gorm.DB, host, categoryID string, score int, tags []string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.DomainCatalogEntry{}).
		Where("domain = ?", host).
		Updates(map[string]any{
			"category_id":   categoryID,
			"safety_score":  score,
			"tags":          tagsJSON(tags),
			"classified_at": at.UTC(),
			"updated_at":    at.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountCatalogEntries returns the number of cached domains.
func CountCatalogEntries(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.DomainCatalogEntry{}).Count(&n).Error
	return n, err
}

func tagsJSON(tags []string) datatypes.JSON {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags) // []string always marshals
	return datatypes.JSON(b)
}
