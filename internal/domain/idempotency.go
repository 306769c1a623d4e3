// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency records that a request carrying an Idempotency-Key has
// already been applied, keyed by (child_id, scope, key). Heartbeats use it
// so that a retried report is not counted twice.
type Idempotency struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	ChildID   string    `gorm:"type:char(36);not null;uniqueIndex:ux_child_scope_key,priority:1"`
	Scope     string    `gorm:"type:varchar(32);not null;uniqueIndex:ux_child_scope_key,priority:2"`
	Key       string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_child_scope_key,priority:3"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
