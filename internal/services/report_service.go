package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-parental-backend/internal/domain"
	"github.com/tbourn/go-parental-backend/internal/repo"
)

const (
	DefaultHistoryPageSize = 20
	MaxHistoryPageSize     = 100
)

// HistoryPage is one page of visit history.
type HistoryPage struct {
	Items    []domain.VisitHistoryEvent `json:"items"`
	Page     int                        `json:"page"`
	PageSize int                        `json:"page_size"`
	Total    int64                      `json:"total"`
}

// ReportService serves parent-facing history and alerts.
type ReportService struct {
	DB *gorm.DB
}

// NewReportService wires a ReportService.
func NewReportService(db *gorm.DB) *ReportService { return &ReportService{DB: db} }

// HistoryETag returns a weak validator that changes whenever any page of the
// child's history could change.
func (s *ReportService) HistoryETag(ctx context.Context, childID string) (string, error) {
	n, last, err := repo.HistoryStats(ctx, s.DB, childID)
	if err != nil {
		return "", err
	}
	var ts int64
	if last != nil {
		ts = last.UTC().UnixNano()
	}
	return fmt.Sprintf(`W/"history:%s:%d:%d"`, childID, n, ts), nil
}

// History returns a page of the child's visits, newest first.
func (s *ReportService) History(ctx context.Context, childID string, page, pageSize int) (*HistoryPage, error) {
	tr := otel.Tracer("services/ReportService")
	ctx, span := tr.Start(ctx, "History",
		trace.WithAttributes(
			attribute.String("child.id", childID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if err := requireChild(ctx, s.DB, childID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultHistoryPageSize
	}
	if pageSize > MaxHistoryPageSize {
		pageSize = MaxHistoryPageSize
	}

	total, err := repo.CountVisits(ctx, s.DB, childID)
	if err != nil {
		return nil, err
	}
	out := &HistoryPage{Items: []domain.VisitHistoryEvent{}, Page: page, PageSize: pageSize, Total: total}
	if total == 0 {
		return out, nil
	}
	items, err := repo.ListVisitsPage(ctx, s.DB, childID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	out.Items = items
	return out, nil
}

// AlertSummary is the alert list with counters.
type AlertSummary struct {
	Items  []domain.Alert `json:"items"`
	Total  int64          `json:"total"`
	Unsent int64          `json:"unsent"`
}

// Alerts lists the child's alerts, newest first.
func (s *ReportService) Alerts(ctx context.Context, childID string, unsentOnly bool, limit int) (*AlertSummary, error) {
	if err := requireChild(ctx, s.DB, childID); err != nil {
		return nil, err
	}
	total, unsent, err := repo.AlertsStats(ctx, s.DB, childID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxHistoryPageSize {
		limit = MaxHistoryPageSize
	}
	items, err := repo.ListAlerts(ctx, s.DB, childID, unsentOnly, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Alert{}
	}
	return &AlertSummary{Items: items, Total: total, Unsent: unsent}, nil
}

// MarkAlertsSent acknowledges delivery of the given alerts, or of every
// unsent alert when ids is empty.
func (s *ReportService) MarkAlertsSent(ctx context.Context, childID string, ids []string) (int64, error) {
	if err := requireChild(ctx, s.DB, childID); err != nil {
		return 0, err
	}
	return repo.MarkAlertsSent(ctx, s.DB, childID, ids)
}
