// Package handlers exposes the REST endpoints of the access-policy service.
//
// Handlers are transport-thin: they bind and validate input, read the caller
// identity established by middleware, call an application service, and
// translate results into HTTP responses.
package handlers

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-parental-backend/internal/auth"
	"github.com/tbourn/go-parental-backend/internal/domain"
	"github.com/tbourn/go-parental-backend/internal/http/middleware"
	"github.com/tbourn/go-parental-backend/internal/repo"
	"github.com/tbourn/go-parental-backend/internal/services"
	"github.com/tbourn/go-parental-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// LoginService issues parent tokens.
type LoginService interface {
	Login(ctx context.Context, email, password string) (*auth.Token, error)
}

// PolicyChecker decides whether a child may open a URL.
type PolicyChecker interface {
	Check(ctx context.Context, childID, rawURL string, dryRun bool) (*services.CheckResult, error)
}

// UsageService records heartbeats and manages today's usage.
type UsageService interface {
	Heartbeat(ctx context.Context, childID, rawURL string, seconds int64, idempotencyKey string) (*services.HeartbeatResult, error)
	ResetToday(ctx context.Context, childID string) (int64, error)
	Breakdown(ctx context.Context, childID string) ([]repo.CategoryUsage, error)
}

// QuotaReader reports today's global quota.
type QuotaReader interface {
	Status(ctx context.Context, childID string) (services.DailyStatus, error)
}

// TimeGranter restores remaining time after parent re-authentication.
type TimeGranter interface {
	Grant(ctx context.Context, parentID, childID, password string, requestedSeconds int64) (*services.GrantResult, error)
}

// RuleManager manages category and domain rules and time settings.
type RuleManager interface {
	List(ctx context.Context, childID string) (*services.RuleSet, error)
	UpsertCategoryRule(ctx context.Context, childID, category, status string, limitMinutes *int) (*services.CategoryRuleView, error)
	DeleteCategoryRule(ctx context.Context, childID, category string) error
	UpsertURLRule(ctx context.Context, childID, rawDomain, status string, limitMinutes *int) (*services.URLRuleView, error)
	DeleteURLRule(ctx context.Context, childID, rawDomain string) error
	GetSettings(ctx context.Context, childID, units string) (*services.Settings, error)
	ReplaceSettings(ctx context.Context, childID string, in services.Settings) (*services.Settings, error)
}

// Reporter serves visit history and alerts.
type Reporter interface {
	HistoryETag(ctx context.Context, childID string) (string, error)
	History(ctx context.Context, childID string, page, pageSize int) (*services.HistoryPage, error)
	Alerts(ctx context.Context, childID string, unsentOnly bool, limit int) (*services.AlertSummary, error)
	MarkAlertsSent(ctx context.Context, childID string, ids []string) (int64, error)
}

// Reclassifier re-runs domain classification.
type Reclassifier interface {
	Reclassify(ctx context.Context, rawDomain string) (*domain.DomainCatalogEntry, error)
}

//
// Handler wiring
//

// Services bundles the dependencies of Handlers.
type Services struct {
	Auth    LoginService
	Policy  PolicyChecker
	Usage   UsageService
	Quota   QuotaReader
	Grant   TimeGranter
	Rules   RuleManager
	Reports Reporter
	Catalog Reclassifier
}

// Handlers groups all HTTP endpoints.
type Handlers struct {
	svc Services
}

// New constructs Handlers bound to the given services.
func New(svc Services) *Handlers {
	return &Handlers{svc: svc}
}

// childID returns the child authorized by middleware, falling back to the
// route parameter.
func childID(c *gin.Context) string {
	if id := middleware.ChildID(c); id != "" {
		return id
	}
	return c.Param(middleware.ChildParam)
}

// clampPagination parses and bounds page and page_size.
func clampPagination(c *gin.Context) (page, pageSize int) {
	page = max(utils.AtoiDefault(c.Query("page"), 1), 1)
	pageSize = utils.AtoiClamp(c.Query("page_size"), services.DefaultHistoryPageSize, 1, services.MaxHistoryPageSize)
	return
}

// wholeSeconds converts a client-supplied duration to whole seconds. Missing
// or non-finite values become 0.
func wholeSeconds(v *float64) int64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	if *v >= math.MaxInt64 {
		return math.MaxInt64
	}
	if *v <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(math.Round(*v))
}

// heartbeatSeconds reads a reported duration leniently: JSON numbers and
// numeric strings are accepted. Anything else, or a value that is not a
// positive finite number, yields 0 and the service applies its default. A
// positive fraction counts as at least one second.
func heartbeatSeconds(raw json.RawMessage) int64 {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return 0
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return max(int64(math.Round(f)), 1)
}
