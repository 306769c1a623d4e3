package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-parental-backend/internal/classifier"
	"github.com/tbourn/go-parental-backend/internal/domain"
	"github.com/tbourn/go-parental-backend/internal/repo"
)

// Settings units accepted on the wire.
const (
	UnitsSeconds = "seconds"
	UnitsMinutes = "minutes"
)

// CategoryRuleView is a category rule as shown to parents.
type CategoryRuleView struct {
	Category     string            `json:"category"`
	Status       domain.RuleStatus `json:"status"`
	Origin       domain.RuleOrigin `json:"origin"`
	LimitMinutes *int              `json:"limit_minutes,omitempty"`
}

// URLRuleView is a URL rule as shown to parents.
type URLRuleView struct {
	Domain   string            `json:"domain"`
	Category string            `json:"category"`
	Status   domain.RuleStatus `json:"status"`
	Origin   domain.RuleOrigin `json:"origin"`
}

// RuleSet is every rule of a child.
type RuleSet struct {
	Categories []CategoryRuleView `json:"categories"`
	Domains    []URLRuleView      `json:"domains"`
	// KnownCategories lists every category seen so far, for rule pickers.
	KnownCategories []string `json:"known_categories"`
}

// AppLimitView is a named per-domain budget.
type AppLimitView struct {
	Domain       string `json:"domain"`
	LimitMinutes int    `json:"limit_minutes"`
}

// CategoryLimitView is a parent LIMITED category rule.
type CategoryLimitView struct {
	Category     string `json:"category"`
	LimitMinutes int    `json:"limit_minutes"`
}

// Budget is the global time configuration. Durations are expressed in the
// units of the enclosing Settings.
type Budget struct {
	DailyLimit       int64 `json:"daily_limit"`
	WeekdayLimit     int64 `json:"weekday_limit"`
	WeekendLimit     int64 `json:"weekend_limit"`
	SessionLimit     int64 `json:"session_limit"`
	BreakEvery       int64 `json:"break_every"`
	BreakDuration    int64 `json:"break_duration"`
	FocusModeEnabled bool  `json:"focus_mode_enabled"`
	DowntimeEnabled  bool  `json:"downtime_enabled"`
}

// Settings is the full, replaceable configuration of a child.
type Settings struct {
	Units          string              `json:"units"`
	Budget         Budget              `json:"budget"`
	AppLimits      []AppLimitView      `json:"app_limits"`
	CategoryLimits []CategoryLimitView `json:"category_limits"`
}

// RuleService manages category rules, URL rules, and settings.
type RuleService struct {
	DB      *gorm.DB
	Catalog *CatalogService
	Quota   *QuotaService
}

// NewRuleService wires a RuleService.
func NewRuleService(db *gorm.DB, catalog *CatalogService, quota *QuotaService) *RuleService {
	return &RuleService{DB: db, Catalog: catalog, Quota: quota}
}

// originOf maps the legacy "-1" minute sentinel to an automatic rule and
// drops it from the stored limit.
func originOf(limitMinutes *int) (domain.RuleOrigin, *int, error) {
	if limitMinutes == nil {
		return domain.OriginParent, nil, nil
	}
	switch m := *limitMinutes; {
	case m == domain.LegacyAutoLimit:
		return domain.OriginAuto, nil, nil
	case m < 0:
		return "", nil, fmt.Errorf("%w: limit_minutes must be >= 0", ErrInvalidInput)
	}
	v := *limitMinutes
	return domain.OriginParent, &v, nil
}

func parseStatus(s string, allowLimited bool) (domain.RuleStatus, error) {
	st := domain.RuleStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case domain.RuleAllowed, domain.RuleBlocked:
		return st, nil
	case domain.RuleLimited:
		if allowLimited {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: status %q", ErrInvalidInput, s)
}

// List returns every rule of the child.
func (s *RuleService) List(ctx context.Context, childID string) (*RuleSet, error) {
	if err := requireChild(ctx, s.DB, childID); err != nil {
		return nil, err
	}
	crs, err := repo.ListCategoryRules(ctx, s.DB, childID)
	if err != nil {
		return nil, err
	}
	urs, err := repo.ListURLRules(ctx, s.DB, childID)
	if err != nil {
		return nil, err
	}
	known, err := repo.ListCategories(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	out := &RuleSet{
		Categories:      make([]CategoryRuleView, 0, len(crs)),
		Domains:         make([]URLRuleView, 0, len(urs)),
		KnownCategories: make([]string, 0, len(known)),
	}
	for _, c := range known {
		out.KnownCategories = append(out.KnownCategories, c.Name)
	}
	for _, r := range crs {
		out.Categories = append(out.Categories, CategoryRuleView{
			Category: r.Category.Name, Status: r.Status, Origin: r.Origin, LimitMinutes: r.LimitMinutes,
		})
	}
	for _, r := range urs {
		out.Domains = append(out.Domains, URLRuleView{
			Domain: r.Domain.Domain, Category: r.Domain.Category.Name, Status: r.Status, Origin: r.Origin,
		})
	}
	return out, nil
}

// UpsertCategoryRule sets the child's rule for a category, creating the
// category if the name is new. limitMinutes == -1 marks the rule automatic.
func (s *RuleService) UpsertCategoryRule(ctx context.Context, childID, category, status string, limitMinutes *int) (*CategoryRuleView, error) {
	if err := requireChild(ctx, s.DB, childID); err != nil {
		return nil, err
	}
	name := classifier.NormalizeCategory(category)
	if name == "" {
		return nil, fmt.Errorf("%w: empty category", ErrInvalidInput)
	}
	st, err := parseStatus(status, true)
	if err != nil {
		return nil, err
	}
	origin, limit, err := originOf(limitMinutes)
	if err != nil {
		return nil, err
	}
	if st != domain.RuleLimited {
		limit = nil
	}

	cat, err := repo.EnsureCategory(ctx, s.DB, name)
	if err != nil {
		return nil, err
	}
	r, err := repo.UpsertCategoryRule(ctx, s.DB, childID, cat.ID, st, origin, limit)
	if err != nil {
		return nil, err
	}
	return &CategoryRuleView{Category: r.Category.Name, Status: r.Status, Origin: r.Origin, LimitMinutes: r.LimitMinutes}, nil
}

// DeleteCategoryRule removes the child's rule for a category.
func (s *RuleService) DeleteCategoryRule(ctx context.Context, childID, category string) error {
	if err := requireChild(ctx, s.DB, childID); err != nil {
		return err
	}
	cat, err := repo.GetCategoryByName(ctx, s.DB, classifier.NormalizeCategory(category))
	if errors.Is(err, repo.ErrNotFound) {
		return ErrCategoryNotFound
	}
	if err != nil {
		return err
	}
	if err := repo.DeleteCategoryRule(ctx, s.DB, childID, cat.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRuleNotFound
		}
		return err
	}
	return nil
}

// UpsertURLRule allows or blocks one domain for the child. Blocking an
// unknown domain adds it to the catalog in the Custom category without
// classification; allowing one classifies it first.
func (s *RuleService) UpsertURLRule(ctx context.Context, childID, rawDomain, status string, limitMinutes *int) (*URLRuleView, error) {
	if err := requireChild(ctx, s.DB, childID); err != nil {
		return nil, err
	}
	host, err := NormalizeDomain(rawDomain)
	if err != nil {
		return nil, err
	}
	st, err := parseStatus(status, false)
	if err != nil {
		return nil, err
	}
	origin, limit, err := originOf(limitMinutes)
	if err != nil {
		return nil, err
	}

	// The catalog is shared across families. Only a block may skip the
	// classifier; an allow on an unknown domain still gets a real verdict.
	var e *domain.DomainCatalogEntry
	if st == domain.RuleBlocked {
		e, err = s.Catalog.EnsureCustom(ctx, host)
	} else {
		e, err = s.Catalog.Resolve(ctx, host)
	}
	if err != nil {
		return nil, err
	}
	r, err := repo.UpsertURLRule(ctx, s.DB, childID, e.ID, st, origin, limit)
	if err != nil {
		return nil, err
	}
	return &URLRuleView{Domain: r.Domain.Domain, Category: r.Domain.Category.Name, Status: r.Status, Origin: r.Origin}, nil
}

// DeleteURLRule removes the child's rule for a domain.
func (s *RuleService) DeleteURLRule(ctx context.Context, childID, rawDomain string) error {
	if err := requireChild(ctx, s.DB, childID); err != nil {
		return err
	}
	host, err := NormalizeDomain(rawDomain)
	if err != nil {
		return err
	}
	e, err := repo.GetCatalogEntry(ctx, s.DB, host)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrRuleNotFound
	}
	if err != nil {
		return err
	}
	if err := repo.DeleteURLRule(ctx, s.DB, childID, e.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRuleNotFound
		}
		return err
	}
	return nil
}

func unitFactor(units string) (int64, string, error) {
	switch strings.ToLower(strings.TrimSpace(units)) {
	case "", UnitsSeconds:
		return 1, UnitsSeconds, nil
	case UnitsMinutes:
		return 60, UnitsMinutes, nil
	}
	return 0, "", fmt.Errorf("%w: units %q", ErrInvalidInput, units)
}

// GetSettings returns the child's budget in the requested units together
// with the app and category limit lists.
func (s *RuleService) GetSettings(ctx context.Context, childID, units string) (*Settings, error) {
	f, units, err := unitFactor(units)
	if err != nil {
		return nil, err
	}
	if err := requireChild(ctx, s.DB, childID); err != nil {
		return nil, err
	}
	b, err := s.Quota.Budget(ctx, s.DB, childID)
	if err != nil {
		return nil, err
	}
	out := &Settings{
		Units: units,
		Budget: Budget{
			DailyLimit:       b.DailyLimitSeconds / f,
			WeekdayLimit:     b.WeekdayLimitSeconds / f,
			WeekendLimit:     b.WeekendLimitSeconds / f,
			SessionLimit:     b.SessionLimitSeconds / f,
			BreakEvery:       b.BreakEverySeconds / f,
			BreakDuration:    b.BreakDurationSeconds / f,
			FocusModeEnabled: b.FocusModeEnabled,
			DowntimeEnabled:  b.DowntimeEnabled,
		},
		AppLimits:      []AppLimitView{},
		CategoryLimits: []CategoryLimitView{},
	}

	apps, err := repo.ListAppLimits(ctx, s.DB, childID)
	if err != nil {
		return nil, err
	}
	for _, a := range apps {
		out.AppLimits = append(out.AppLimits, AppLimitView{Domain: a.Domain.Domain, LimitMinutes: a.LimitMinutes})
	}

	rules, err := repo.ListCategoryRules(ctx, s.DB, childID)
	if err != nil {
		return nil, err
	}
	for _, r := range rules {
		if r.Status == domain.RuleLimited && r.Origin == domain.OriginParent && r.LimitMinutes != nil {
			out.CategoryLimits = append(out.CategoryLimits, CategoryLimitView{Category: r.Category.Name, LimitMinutes: *r.LimitMinutes})
		}
	}
	return out, nil
}

// ReplaceSettings overwrites the child's budget, app limits, and parent
// category limits in one transaction. Parent LIMITED rules missing from the
// new list are removed. App-limit domains seen for the first time are
// classified.
func (s *RuleService) ReplaceSettings(ctx context.Context, childID string, in Settings) (*Settings, error) {
	f, units, err := unitFactor(in.Units)
	if err != nil {
		return nil, err
	}
	if err := validateSettings(in); err != nil {
		return nil, err
	}
	if err := requireChild(ctx, s.DB, childID); err != nil {
		return nil, err
	}

	// Classification happens outside the transaction.
	apps := make([]domain.ChildAppLimit, 0, len(in.AppLimits))
	seen := make(map[string]struct{}, len(in.AppLimits))
	for _, a := range in.AppLimits {
		e, err := s.Catalog.Resolve(ctx, a.Domain)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate app limit for %s", ErrInvalidInput, e.Domain)
		}
		seen[e.ID] = struct{}{}
		apps = append(apps, domain.ChildAppLimit{DomainID: e.ID, LimitMinutes: a.LimitMinutes})
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := s.Quota.Budget(ctx, tx, childID)
		if err != nil {
			return err
		}
		b.DailyLimitSeconds = in.Budget.DailyLimit * f
		b.WeekdayLimitSeconds = in.Budget.WeekdayLimit * f
		b.WeekendLimitSeconds = in.Budget.WeekendLimit * f
		b.SessionLimitSeconds = in.Budget.SessionLimit * f
		b.BreakEverySeconds = in.Budget.BreakEvery * f
		b.BreakDurationSeconds = in.Budget.BreakDuration * f
		b.FocusModeEnabled = in.Budget.FocusModeEnabled
		b.DowntimeEnabled = in.Budget.DowntimeEnabled
		b.UnitsVersion = domain.BudgetUnitsSeconds
		if err := repo.UpdateTimeBudget(ctx, tx, b); err != nil {
			return err
		}

		if err := repo.ReplaceAppLimits(ctx, tx, childID, apps); err != nil {
			return err
		}
		return s.replaceCategoryLimits(ctx, tx, childID, in.CategoryLimits)
	})
	if err != nil {
		return nil, err
	}
	return s.GetSettings(ctx, childID, units)
}

func (s *RuleService) replaceCategoryLimits(ctx context.Context, tx *gorm.DB, childID string, limits []CategoryLimitView) error {
	keep := make(map[string]struct{}, len(limits))
	for _, l := range limits {
		cat, err := repo.EnsureCategory(ctx, tx, classifier.NormalizeCategory(l.Category))
		if err != nil {
			return err
		}
		m := l.LimitMinutes
		if _, err := repo.UpsertCategoryRule(ctx, tx, childID, cat.ID, domain.RuleLimited, domain.OriginParent, &m); err != nil {
			return err
		}
		keep[cat.ID] = struct{}{}
	}

	existing, err := repo.ListCategoryRules(ctx, tx, childID)
	if err != nil {
		return err
	}
	for _, r := range existing {
		if r.Status != domain.RuleLimited || r.Origin != domain.OriginParent {
			continue
		}
		if _, ok := keep[r.CategoryID]; ok {
			continue
		}
		if err := repo.DeleteCategoryRule(ctx, tx, childID, r.CategoryID); err != nil {
			return err
		}
	}
	return nil
}

func validateSettings(in Settings) error {
	b := in.Budget
	for _, v := range []int64{b.DailyLimit, b.WeekdayLimit, b.WeekendLimit, b.SessionLimit, b.BreakEvery, b.BreakDuration} {
		if v < 0 {
			return fmt.Errorf("%w: budget values must be >= 0", ErrInvalidInput)
		}
	}
	for _, a := range in.AppLimits {
		if a.LimitMinutes <= 0 {
			return fmt.Errorf("%w: app limit for %q must be > 0 minutes", ErrInvalidInput, a.Domain)
		}
	}
	for _, l := range in.CategoryLimits {
		if classifier.NormalizeCategory(l.Category) == "" || l.LimitMinutes <= 0 {
			return fmt.Errorf("%w: category limit %q must name a category and be > 0 minutes", ErrInvalidInput, l.Category)
		}
	}
	return nil
}
