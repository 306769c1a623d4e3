// Package domain defines the persistence models for the access-policy
// service: accounts, the shared domain catalog, per-child rules and time
// budgets, usage buckets, visit history, and alerts. These types are mapped
// with GORM and form the core data layer of the application.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Well-known category names.
const (
	// CategoryUncategorized is assigned when classification fails or the
	// domain is unknown on a read-only lookup.
	CategoryUncategorized = "Uncategorized"
	// CategoryCustom marks domains added by an explicit parent decision.
	// They are exempt from the safety-score auto-block.
	CategoryCustom = "Custom"

	// DefaultSafetyScore is used with CategoryUncategorized and CategoryCustom.
	DefaultSafetyScore = 50
)

// RuleStatus is the state of a category or URL rule.
type RuleStatus string

const (
	RuleAllowed RuleStatus = "ALLOWED"
	RuleBlocked RuleStatus = "BLOCKED"
	RuleLimited RuleStatus = "LIMITED"
)

// RuleOrigin records who created a rule. Automatic rules were imposed by
// the engine or the classifier; parent rules are explicit decisions.
type RuleOrigin string

const (
	OriginAuto   RuleOrigin = "auto"
	OriginParent RuleOrigin = "parent"
)

// LegacyAutoLimit is the wire value older clients send in
// time_limit_minutes to mean "automatically imposed".
const LegacyAutoLimit = -1

// Parent is an account allowed to manage one or more children.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Email: login identifier; unique.
//   - PasswordHash: bcrypt hash, never serialized.
type Parent struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for Parent.
func (Parent) TableName() string { return "parents" }

// Child is a monitored profile owned by exactly one parent.
type Child struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	ParentID  string    `json:"parent_id"  gorm:"type:char(36);not null;index"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Parent Parent `json:"-" gorm:"foreignKey:ParentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Child.
func (Child) TableName() string { return "children" }

// Category is a content category name. Rows are created lazily whenever a
// classifier or a parent references a name that is not yet known.
type Category struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(100);not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Category.
func (Category) TableName() string { return "categories" }

// DomainCatalogEntry is the cached classification of one normalized domain.
// There is exactly one row per domain system-wide; category and score are
// immutable until an operator re-classifies the domain.
//
// Fields:
//   - Domain: lowercase host without scheme, port, or leading "www.".
//   - SafetyScore: 0 (dangerous) .. 100 (safe).
//   - Tags: free-form labels derived during classification (JSON array).
//   - ClassifiedAt: when the verdict was produced.
type DomainCatalogEntry struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	Domain       string         `json:"domain"        gorm:"type:varchar(255);not null;uniqueIndex"`
	CategoryID   string         `json:"category_id"   gorm:"type:char(36);not null;index"`
	SafetyScore  int            `json:"safety_score"  gorm:"not null;check:safety_score BETWEEN 0 AND 100"`
	Tags         datatypes.JSON `json:"tags"          gorm:"type:json"`
	ClassifiedAt time.Time      `json:"classified_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	Category Category `json:"category" gorm:"foreignKey:CategoryID;references:ID"`
}

// TableName returns the database table name for DomainCatalogEntry.
func (DomainCatalogEntry) TableName() string { return "domain_catalog" }

// ChildCategoryRule is a parent or automatic policy for one
// (child, category) pair. LimitMinutes is only meaningful for LIMITED rules
// set by a parent.
type ChildCategoryRule struct {
	ID           string     `json:"id"            gorm:"type:char(36);primaryKey"`
	ChildID      string     `json:"child_id"      gorm:"type:char(36);not null;uniqueIndex:ux_child_category,priority:1"`
	CategoryID   string     `json:"category_id"   gorm:"type:char(36);not null;uniqueIndex:ux_child_category,priority:2"`
	Status       RuleStatus `json:"status"        gorm:"type:varchar(16);not null;check:status IN ('ALLOWED','BLOCKED','LIMITED')"`
	Origin       RuleOrigin `json:"origin"        gorm:"type:varchar(16);not null;default:'parent'"`
	LimitMinutes *int       `json:"limit_minutes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Category Category `json:"category" gorm:"foreignKey:CategoryID;references:ID"`
}

// TableName returns the database table name for ChildCategoryRule.
func (ChildCategoryRule) TableName() string { return "child_category_rules" }

// LimitSeconds returns the parent-set budget in seconds, or 0 when the rule
// carries no usable budget.
func (r ChildCategoryRule) LimitSeconds() int64 {
	if r.Status != RuleLimited || r.Origin != OriginParent || r.LimitMinutes == nil || *r.LimitMinutes <= 0 {
		return 0
	}
	return int64(*r.LimitMinutes) * 60
}

// ChildURLRule overrides the category rule for one domain and one child.
type ChildURLRule struct {
	ID           string     `json:"id"            gorm:"type:char(36);primaryKey"`
	ChildID      string     `json:"child_id"      gorm:"type:char(36);not null;uniqueIndex:ux_child_domain,priority:1"`
	DomainID     string     `json:"domain_id"     gorm:"type:char(36);not null;uniqueIndex:ux_child_domain,priority:2"`
	Status       RuleStatus `json:"status"        gorm:"type:varchar(16);not null;check:status IN ('ALLOWED','BLOCKED')"`
	Origin       RuleOrigin `json:"origin"        gorm:"type:varchar(16);not null;default:'parent'"`
	LimitMinutes *int       `json:"limit_minutes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Domain DomainCatalogEntry `json:"domain" gorm:"foreignKey:DomainID;references:ID"`
}

// TableName returns the database table name for ChildURLRule.
func (ChildURLRule) TableName() string { return "child_url_rules" }

// ChildAppLimit is a named per-domain daily budget ("app limit").
type ChildAppLimit struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	ChildID      string    `json:"child_id"      gorm:"type:char(36);not null;uniqueIndex:ux_child_app,priority:1"`
	DomainID     string    `json:"domain_id"     gorm:"type:char(36);not null;uniqueIndex:ux_child_app,priority:2"`
	LimitMinutes int       `json:"limit_minutes" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`

	Domain DomainCatalogEntry `json:"domain" gorm:"foreignKey:DomainID;references:ID"`
}

// TableName returns the database table name for ChildAppLimit.
func (ChildAppLimit) TableName() string { return "child_app_limits" }

// BudgetUnitsSeconds is the UnitsVersion of rows stored in seconds. Rows
// with UnitsVersion 0 predate the switch and may still hold minutes.
const BudgetUnitsSeconds = 1

// ChildTimeBudget holds the global time configuration for a child. All
// durations are seconds; zero means "no limit" / "disabled".
type ChildTimeBudget struct {
	ID                   string    `json:"-"                      gorm:"type:char(36);primaryKey"`
	ChildID              string    `json:"child_id"               gorm:"type:char(36);not null;uniqueIndex"`
	DailyLimitSeconds    int64     `json:"daily_limit_seconds"    gorm:"not null;default:0"`
	WeekdayLimitSeconds  int64     `json:"weekday_limit_seconds"  gorm:"not null;default:0"`
	WeekendLimitSeconds  int64     `json:"weekend_limit_seconds"  gorm:"not null;default:0"`
	SessionLimitSeconds  int64     `json:"session_limit_seconds"  gorm:"not null;default:0"`
	BreakEverySeconds    int64     `json:"break_every_seconds"    gorm:"not null;default:0"`
	BreakDurationSeconds int64     `json:"break_duration_seconds" gorm:"not null;default:0"`
	FocusModeEnabled     bool      `json:"focus_mode_enabled"     gorm:"not null;default:false"`
	DowntimeEnabled      bool      `json:"downtime_enabled"       gorm:"not null;default:false"`
	UnitsVersion         int       `json:"-"                      gorm:"not null;default:0"`
	CreatedAt            time.Time `json:"-"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TableName returns the database table name for ChildTimeBudget.
func (ChildTimeBudget) TableName() string { return "child_time_budgets" }

// DailyUsageBucket accumulates seconds of usage for one child, one category,
// and one local calendar day. Date is the local day expressed as midnight UTC.
type DailyUsageBucket struct {
	ID              string    `json:"id"               gorm:"type:char(36);primaryKey"`
	ChildID         string    `json:"child_id"         gorm:"type:char(36);not null;uniqueIndex:ux_usage_child_cat_day,priority:1"`
	CategoryID      string    `json:"category_id"      gorm:"type:char(36);not null;uniqueIndex:ux_usage_child_cat_day,priority:2"`
	Date            time.Time `json:"date"             gorm:"not null;uniqueIndex:ux_usage_child_cat_day,priority:3"`
	DurationSeconds int64     `json:"duration_seconds" gorm:"not null;default:0;check:duration_seconds >= 0"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for DailyUsageBucket.
func (DailyUsageBucket) TableName() string { return "daily_usage_buckets" }

// HistoryAction is the recorded outcome of a visit.
type HistoryAction string

const (
	HistoryAllowed HistoryAction = "ALLOWED"
	HistoryBlocked HistoryAction = "BLOCKED"
)

// VisitHistoryEvent is one (possibly coalesced) visit to a domain.
type VisitHistoryEvent struct {
	ID              string        `json:"id"               gorm:"type:char(36);primaryKey"`
	ChildID         string        `json:"child_id"         gorm:"type:char(36);not null;index:idx_history_child_domain,priority:1;index:idx_history_child_time,priority:1"`
	Domain          string        `json:"domain"           gorm:"type:varchar(255);not null;index:idx_history_child_domain,priority:2"`
	FullURL         string        `json:"full_url"         gorm:"type:text;not null"`
	CategoryName    string        `json:"category"         gorm:"type:varchar(100);not null"`
	ActionTaken     HistoryAction `json:"action_taken"     gorm:"type:varchar(16);not null"`
	DurationSeconds int64         `json:"duration_seconds" gorm:"not null;default:0"`
	VisitedAt       time.Time     `json:"visited_at"       gorm:"not null;index:idx_history_child_domain,priority:3;index:idx_history_child_time,priority:2"`
}

// TableName returns the database table name for VisitHistoryEvent.
func (VisitHistoryEvent) TableName() string { return "visit_history" }

// AlertDangerousContent is the alert type raised on a fresh safety block.
const AlertDangerousContent = "DANGEROUS_CONTENT"

// Alert is a notification for the parent. Delivery is handled elsewhere;
// IsSent flips once the delivery collaborator acknowledges it.
type Alert struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	ChildID   string    `json:"child_id"   gorm:"type:char(36);not null;index"`
	Type      string    `json:"type"       gorm:"type:varchar(32);not null"`
	Message   string    `json:"message"    gorm:"type:text;not null"`
	IsSent    bool      `json:"is_sent"    gorm:"not null;default:false;index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Alert.
func (Alert) TableName() string { return "alerts" }
