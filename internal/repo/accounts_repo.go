// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for parent and
// child accounts.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-parental-backend/internal/domain"
)

// CreateParent inserts a parent account. Email is stored lowercased.
// Returns ErrDuplicate when the email is already registered.
func CreateParent(ctx context.Context, db *gorm.DB, email, passwordHash string) (*domain.Parent, error) {
	now := time.Now().UTC()
	p := &domain.Parent{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return p, nil
}

// GetParent returns a parent by ID or ErrNotFound.
func GetParent(ctx context.Context, db *gorm.DB, id string) (*domain.Parent, error) {
	var p domain.Parent
	if err := db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetParentByEmail returns a parent by (case-insensitive) email or ErrNotFound.
func GetParentByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Parent, error) {
	var p domain.Parent
	err := db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateChild inserts a child profile owned by parentID.
func CreateChild(ctx context.Context, db *gorm.DB, parentID, name string) (*domain.Child, error) {
	now := time.Now().UTC()
	c := &domain.Child{
		ID:        uuid.NewString(),
		ParentID:  parentID,
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetChild returns a child by ID or ErrNotFound.
func GetChild(ctx context.Context, db *gorm.DB, id string) (*domain.Child, error) {
	var c domain.Child
	if err := db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChildren returns the children owned by parentID ordered by name.
func ListChildren(ctx context.Context, db *gorm.DB, parentID string) ([]domain.Child, error) {
	var out []domain.Child
	err := db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("name ASC").
		Find(&out).Error
	return out, err
}

// ChildExists reports whether a child row exists.
func ChildExists(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	_, err := GetChild(ctx, db, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
