package classifier

import (
	"context"
	"encoding/json"

	"github.com/tbourn/go-parental-backend/internal/domain"
	"github.com/tbourn/go-parental-backend/internal/search"
)

// Keyword classifies domains offline with a category profile index. It
// answers in the same JSON shape a language model is asked for, so the
// catalog treats both providers alike.
type Keyword struct {
	Index search.Index
}

// NewKeyword returns a classifier over idx.
func NewKeyword(idx search.Index) *Keyword { return &Keyword{Index: idx} }

// Classify implements Classifier. Hosts that match no profile are reported
// as Uncategorized with the default score.
func (k *Keyword) Classify(ctx context.Context, host string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v := Verdict{Category: domain.CategoryUncategorized, SafetyScore: domain.DefaultSafetyScore}
	if res := k.Index.TopK(host, 1); len(res) > 0 {
		v = Verdict{Category: res[0].Category, SafetyScore: res[0].SafetyScore, Tags: res[0].Matched}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
