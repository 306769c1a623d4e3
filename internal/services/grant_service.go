package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-parental-backend/internal/clock"
	"github.com/tbourn/go-parental-backend/internal/observability"
	"github.com/tbourn/go-parental-backend/internal/repo"
)

// PasswordVerifier re-authenticates a parent before a sensitive action.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, parentID, password string) error
}

// GrantResult reports a time grant.
type GrantResult struct {
	Changed          bool        `json:"changed"`
	RequestedSeconds int64       `json:"requested_seconds"`
	Before           DailyStatus `json:"before"`
	After            DailyStatus `json:"after"`
}

// GrantService restores remaining daily time by trimming recorded usage.
type GrantService struct {
	DB       *gorm.DB
	Quota    *QuotaService
	Clock    clock.Clock
	Locks    *ChildLocks
	Verifier PasswordVerifier
}

// NewGrantService wires a GrantService.
func NewGrantService(db *gorm.DB, quota *QuotaService, clk clock.Clock, locks *ChildLocks, v PasswordVerifier) *GrantService {
	return &GrantService{DB: db, Quota: quota, Clock: clk, Locks: locks, Verifier: v}
}

// Grant makes requestedSeconds (clamped to [0, limit]) the child's
// remaining time for today. Usage is reduced starting from the largest
// buckets; no bucket grows and emptied buckets are deleted. Without a
// global limit nothing changes.
func (s *GrantService) Grant(ctx context.Context, parentID, childID, password string, requestedSeconds int64) (*GrantResult, error) {
	tr := otel.Tracer("services/GrantService")
	ctx, span := tr.Start(ctx, "Grant",
		trace.WithAttributes(
			attribute.String("child.id", childID),
			attribute.Int64("requested_seconds", requestedSeconds),
		),
	)
	defer span.End()

	// Ownership first: another family's child is Forbidden whatever the
	// password.
	if err := requireOwnedChild(ctx, s.DB, parentID, childID); err != nil {
		return nil, err
	}
	if s.Verifier != nil {
		if err := s.Verifier.VerifyPassword(ctx, parentID, password); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
		}
	}

	unlock := s.Locks.Lock(childID)
	defer unlock()

	var res *GrantResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.grant(ctx, tx, childID, requestedSeconds)
		res = r
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.ObserveGrant(res.Changed)
	log.Info().
		Str("child_id", childID).
		Int64("requested_seconds", requestedSeconds).
		Bool("changed", res.Changed).
		Int64("remaining_seconds", res.After.RemainingSeconds).
		Msg("time granted")
	return res, nil
}

func (s *GrantService) grant(ctx context.Context, tx *gorm.DB, childID string, requested int64) (*GrantResult, error) {
	before, err := s.Quota.status(ctx, tx, childID)
	if err != nil {
		return nil, err
	}
	res := &GrantResult{RequestedSeconds: requested, Before: before, After: before}
	if !before.HasLimit {
		return res, nil
	}

	limit := before.LimitSeconds
	targetRemaining := min(max(requested, 0), limit)
	budget := limit - targetRemaining

	buckets, err := repo.ListUsageBuckets(ctx, tx, childID, clock.Today(s.Clock))
	if err != nil {
		return nil, err
	}
	for _, b := range buckets {
		keep := min(b.DurationSeconds, budget)
		switch {
		case keep == 0:
			if err := repo.DeleteBucket(ctx, tx, b.ID); err != nil {
				return nil, err
			}
			res.Changed = true
		case keep < b.DurationSeconds:
			if err := repo.SetBucketDuration(ctx, tx, b.ID, keep); err != nil {
				return nil, err
			}
			res.Changed = true
		}
		budget -= keep
	}

	if res.After, err = s.Quota.status(ctx, tx, childID); err != nil {
		return nil, err
	}
	return res, nil
}
