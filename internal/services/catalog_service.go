package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/tbourn/go-parental-backend/internal/classifier"
	"github.com/tbourn/go-parental-backend/internal/clock"
	"github.com/tbourn/go-parental-backend/internal/domain"
	"github.com/tbourn/go-parental-backend/internal/observability"
	"github.com/tbourn/go-parental-backend/internal/repo"
)

// DefaultClassifierTimeout bounds one classification when none is configured.
const DefaultClassifierTimeout = 8 * time.Second

// NormalizeDomain reduces a URL or bare host to the catalog key: lowercase
// host without scheme, credentials, path, port, trailing dot, or leading
// "www.".
func NormalizeDomain(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidInput)
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	host = strings.TrimPrefix(host, "www.")
	if host == "" || strings.ContainsAny(host, " \t\\") {
		return "", fmt.Errorf("%w: no host in %q", ErrInvalidInput, raw)
	}
	return host, nil
}

// CatalogService is the domain classification cache. The first lookup of a
// domain asks the classifier; every later lookup is served from the
// catalog table.
type CatalogService struct {
	DB         *gorm.DB
	Classifier classifier.Classifier
	Clock      clock.Clock

	// Timeout bounds a single classifier call.
	Timeout time.Duration

	flights singleflight.Group
}

// NewCatalogService wires a CatalogService.
func NewCatalogService(db *gorm.DB, cl classifier.Classifier, clk clock.Clock, timeout time.Duration) *CatalogService {
	if timeout <= 0 {
		timeout = DefaultClassifierTimeout
	}
	return &CatalogService{DB: db, Classifier: cl, Clock: clk, Timeout: timeout}
}

// Resolve returns the catalog entry for the domain of rawURL, classifying
// and persisting it on first sight. Concurrent first lookups of the same
// domain share one classifier call; lookups of other domains do not wait.
// A failing classifier yields Uncategorized with the default score.
func (s *CatalogService) Resolve(ctx context.Context, rawURL string) (*domain.DomainCatalogEntry, error) {
	tr := otel.Tracer("services/CatalogService")
	ctx, span := tr.Start(ctx, "Resolve")
	defer span.End()

	host, err := NormalizeDomain(rawURL)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("domain", host))

	e, err := repo.GetCatalogEntry(ctx, s.DB, host)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	// The flight outlives any single caller.
	fctx := context.WithoutCancel(ctx)
	v, err, _ := s.flights.Do(host, func() (any, error) {
		if e, err := repo.GetCatalogEntry(fctx, s.DB, host); err == nil {
			return e, nil
		}
		verdict := s.classify(fctx, host)
		return s.store(fctx, host, verdict)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.DomainCatalogEntry), nil
}

// Lookup is the read-only resolution used on hot paths: it never calls the
// classifier. Unknown domains map to the Uncategorized category, which is
// created if needed. The returned entry is nil for unknown domains.
func (s *CatalogService) Lookup(ctx context.Context, host string) (*domain.DomainCatalogEntry, *domain.Category, error) {
	e, err := repo.GetCatalogEntry(ctx, s.DB, host)
	if err == nil {
		return e, &e.Category, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, nil, err
	}
	cat, err := repo.EnsureCategory(ctx, s.DB, domain.CategoryUncategorized)
	if err != nil {
		return nil, nil, err
	}
	return nil, cat, nil
}

// EnsureCustom returns the entry for host, creating it in the Custom
// category with the default score when the domain is unknown. Used when a
// parent names a domain explicitly; the classifier is not consulted.
func (s *CatalogService) EnsureCustom(ctx context.Context, host string) (*domain.DomainCatalogEntry, error) {
	e, err := repo.GetCatalogEntry(ctx, s.DB, host)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	return s.store(ctx, host, classifier.Verdict{
		Category:    domain.CategoryCustom,
		SafetyScore: domain.DefaultSafetyScore,
	})
}

// Reclassify runs the classifier again for host and overwrites the stored
// verdict, creating the entry if it does not exist yet.
func (s *CatalogService) Reclassify(ctx context.Context, rawDomain string) (*domain.DomainCatalogEntry, error) {
	tr := otel.Tracer("services/CatalogService")
	ctx, span := tr.Start(ctx, "Reclassify")
	defer span.End()

	host, err := NormalizeDomain(rawDomain)
	if err != nil {
		return nil, err
	}
	verdict := s.classify(ctx, host)
	cat, err := repo.EnsureCategory(ctx, s.DB, verdict.Category)
	if err != nil {
		return nil, err
	}
	err = repo.UpdateCatalogClassification(ctx, s.DB, host, cat.ID, verdict.SafetyScore, verdict.Tags, s.Clock.Now())
	if errors.Is(err, repo.ErrNotFound) {
		e, _, err := repo.InsertCatalogEntry(ctx, s.DB, host, cat.ID, verdict.SafetyScore, verdict.Tags, s.Clock.Now())
		return e, err
	}
	if err != nil {
		return nil, err
	}
	log.Info().Str("domain", host).Str("category", cat.Name).Int("safety_score", verdict.SafetyScore).Msg("domain reclassified")
	return repo.GetCatalogEntry(ctx, s.DB, host)
}

// classify never fails: classifier errors degrade to Uncategorized.
func (s *CatalogService) classify(ctx context.Context, host string) classifier.Verdict {
	fallback := classifier.Verdict{Category: domain.CategoryUncategorized, SafetyScore: domain.DefaultSafetyScore}
	if s.Classifier == nil {
		return fallback
	}

	cctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	span := trace.SpanFromContext(ctx)

	raw, err := s.Classifier.Classify(cctx, host)
	if err != nil {
		observability.ClassifierResults.WithLabelValues("unavailable").Inc()
		span.RecordError(err)
		log.Warn().Err(err).Str("domain", host).Msg("classifier unavailable; using Uncategorized")
		return fallback
	}
	v, err := classifier.Parse(raw)
	if err != nil {
		observability.ClassifierResults.WithLabelValues("unparseable").Inc()
		log.Warn().Err(err).Str("domain", host).Msg("classifier reply unparseable; using Uncategorized")
		return fallback
	}
	observability.ClassifierResults.WithLabelValues("ok").Inc()
	return v
}

func (s *CatalogService) store(ctx context.Context, host string, v classifier.Verdict) (*domain.DomainCatalogEntry, error) {
	cat, err := repo.EnsureCategory(ctx, s.DB, v.Category)
	if err != nil {
		return nil, err
	}
	e, created, err := repo.InsertCatalogEntry(ctx, s.DB, host, cat.ID, v.SafetyScore, v.Tags, s.Clock.Now())
	if err != nil {
		return nil, err
	}
	if created {
		log.Debug().Str("domain", host).Str("category", cat.Name).Int("safety_score", v.SafetyScore).Msg("domain classified")
	} else {
		log.Debug().Str("domain", host).Msg("catalog insert lost race; using stored entry")
	}
	return e, nil
}
