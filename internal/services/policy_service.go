package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-parental-backend/internal/classifier"
	"github.com/tbourn/go-parental-backend/internal/clock"
	"github.com/tbourn/go-parental-backend/internal/domain"
	"github.com/tbourn/go-parental-backend/internal/observability"
	"github.com/tbourn/go-parental-backend/internal/policy"
	"github.com/tbourn/go-parental-backend/internal/repo"
)

// CheckResult is the answer to a URL check.
type CheckResult struct {
	Action      policy.Action `json:"action"`
	Reason      policy.Reason `json:"reason"`
	Source      policy.Source `json:"source"`
	Domain      string        `json:"domain"`
	Category    string        `json:"category"`
	SafetyScore int           `json:"safety_score"`
	DryRun      bool          `json:"dry_run"`
}

// PolicyService answers "may this child open this URL now?".
type PolicyService struct {
	DB      *gorm.DB
	Catalog *CatalogService
	Quota   *QuotaService
	Clock   clock.Clock

	// AutoBlock lists category names that receive an automatic BLOCKED
	// rule the first time a child meets them.
	AutoBlock map[string]struct{}
}

// NewPolicyService wires a PolicyService. autoBlock names are normalized
// the same way classifier categories are.
func NewPolicyService(db *gorm.DB, catalog *CatalogService, quota *QuotaService, clk clock.Clock, autoBlock []string) *PolicyService {
	set := make(map[string]struct{}, len(autoBlock))
	for _, name := range autoBlock {
		if n := classifier.NormalizeCategory(name); n != "" {
			set[n] = struct{}{}
		}
	}
	return &PolicyService{DB: db, Catalog: catalog, Quota: quota, Clock: clk, AutoBlock: set}
}

// Check evaluates the cascade for childID and rawURL. Unless dryRun is set
// it also appends a history event, raises an alert for dangerous content,
// and applies automatic category blocks.
func (s *PolicyService) Check(ctx context.Context, childID, rawURL string, dryRun bool) (*CheckResult, error) {
	tr := otel.Tracer("services/PolicyService")
	ctx, span := tr.Start(ctx, "Check",
		trace.WithAttributes(
			attribute.String("child.id", childID),
			attribute.Bool("dry_run", dryRun),
		),
	)
	defer span.End()

	if err := requireChild(ctx, s.DB, childID); err != nil {
		return nil, err
	}
	e, err := s.Catalog.Resolve(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("domain", e.Domain))

	if !dryRun {
		if err := s.applyAutoBlock(ctx, childID, e); err != nil {
			return nil, err
		}
	}

	in, err := s.gather(ctx, s.DB, childID, e)
	if err != nil {
		return nil, err
	}
	v := policy.Evaluate(in)

	res := &CheckResult{
		Action:      v.Action,
		Reason:      v.Reason,
		Source:      v.Source,
		Domain:      e.Domain,
		Category:    e.Category.Name,
		SafetyScore: e.SafetyScore,
		DryRun:      dryRun,
	}
	if dryRun {
		return res, nil
	}

	if err := s.record(ctx, childID, rawURL, e, v); err != nil {
		return nil, err
	}
	observability.PolicyDecisions.WithLabelValues(string(v.Action), string(v.Reason)).Inc()
	return res, nil
}

func (s *PolicyService) applyAutoBlock(ctx context.Context, childID string, e *domain.DomainCatalogEntry) error {
	if _, ok := s.AutoBlock[e.Category.Name]; !ok {
		return nil
	}
	created, err := repo.CreateCategoryRuleIfAbsent(ctx, s.DB, childID, e.CategoryID, domain.RuleBlocked, domain.OriginAuto)
	if err != nil {
		return err
	}
	if created {
		log.Info().Str("child_id", childID).Str("category", e.Category.Name).Msg("category auto-blocked")
	}
	return nil
}

// gather snapshots everything the cascade needs for one domain.
func (s *PolicyService) gather(ctx context.Context, db *gorm.DB, childID string, e *domain.DomainCatalogEntry) (policy.Input, error) {
	in := policy.Input{Category: e.Category.Name, SafetyScore: e.SafetyScore}
	today := clock.Today(s.Clock)

	cr, err := loadCategoryRule(ctx, db, childID, e.CategoryID)
	if err != nil {
		return in, err
	}
	in.CategoryRule = cr

	ur, err := repo.GetURLRule(ctx, db, childID, e.ID)
	switch {
	case err == nil:
		in.URLRule = &policy.URLRule{Status: ur.Status, Origin: ur.Origin}
	case !errors.Is(err, repo.ErrNotFound):
		return in, err
	}

	if in.CategoryUsedSeconds, err = repo.CategoryUsageSeconds(ctx, db, childID, e.CategoryID, today); err != nil {
		return in, err
	}

	if in.AppLimitSeconds, in.AppUsedSeconds, err = s.appUsage(ctx, db, childID, e); err != nil {
		return in, err
	}

	st, err := s.Quota.status(ctx, db, childID)
	if err != nil {
		return in, err
	}
	in.DailyLimitSeconds, in.DailyUsedSeconds = st.LimitSeconds, st.UsedSeconds
	return in, nil
}

// appUsage returns the app limit for the domain and today's time spent on
// it, summed from history. Limit 0 means no app limit.
func (s *PolicyService) appUsage(ctx context.Context, db *gorm.DB, childID string, e *domain.DomainCatalogEntry) (limit, used int64, err error) {
	al, err := repo.GetAppLimit(ctx, db, childID, e.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, 0, nil
	}
	if err != nil || al.LimitMinutes <= 0 {
		return 0, 0, err
	}
	start, end := clock.TodayBounds(s.Clock)
	used, err = repo.DomainUsageSeconds(ctx, db, childID, e.Domain, start, end)
	return int64(al.LimitMinutes) * 60, used, err
}

func (s *PolicyService) record(ctx context.Context, childID, rawURL string, e *domain.DomainCatalogEntry, v policy.Verdict) error {
	now := s.Clock.Now()
	action := domain.HistoryAllowed
	if v.Blocked() {
		action = domain.HistoryBlocked
	}
	if err := repo.CreateVisit(ctx, s.DB, &domain.VisitHistoryEvent{
		ChildID:      childID,
		Domain:       e.Domain,
		FullURL:      rawURL,
		CategoryName: e.Category.Name,
		ActionTaken:  action,
		VisitedAt:    now,
	}); err != nil {
		return err
	}

	if v.Reason == policy.ReasonDangerousContent {
		msg := fmt.Sprintf("Blocked %s (%s, safety score %d)", e.Domain, e.Category.Name, e.SafetyScore)
		if _, err := repo.CreateAlert(ctx, s.DB, childID, domain.AlertDangerousContent, msg, now); err != nil {
			return err
		}
	}
	return nil
}

// loadCategoryRule returns the cascade view of a category rule, or nil.
func loadCategoryRule(ctx context.Context, db *gorm.DB, childID, categoryID string) (*policy.CategoryRule, error) {
	r, err := repo.GetCategoryRule(ctx, db, childID, categoryID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &policy.CategoryRule{Status: r.Status, Origin: r.Origin, LimitSeconds: r.LimitSeconds()}, nil
}

// requireChild maps a missing child to ErrChildNotFound.
func requireChild(ctx context.Context, db *gorm.DB, childID string) error {
	ok, err := repo.ChildExists(ctx, db, childID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrChildNotFound
	}
	return nil
}

// requireOwnedChild is requireChild plus an ownership check.
func requireOwnedChild(ctx context.Context, db *gorm.DB, parentID, childID string) error {
	c, err := repo.GetChild(ctx, db, childID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrChildNotFound
	}
	if err != nil {
		return err
	}
	if c.ParentID != parentID {
		return ErrForbidden
	}
	return nil
}
