package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-parental-backend/internal/domain"
)

func blockedCategory(origin domain.RuleOrigin) *CategoryRule {
	return &CategoryRule{Status: domain.RuleBlocked, Origin: origin}
}

func TestEvaluate_DefaultAllows(t *testing.T) {
	v := Evaluate(Input{Category: "News", SafetyScore: 90})
	assert.Equal(t, Default, v)
	assert.False(t, v.Blocked())
}

func TestEvaluate_Cascade(t *testing.T) {
	cases := []struct {
		name string
		in   Input
		want Verdict
	}{
		{
			name: "dangerous score",
			in:   Input{Category: "Adult", SafetyScore: 10},
			want: Verdict{Block, ReasonDangerousContent, SourceAI},
		},
		{
			name: "score at threshold is safe",
			in:   Input{Category: "Chat", SafetyScore: 50},
			want: Default,
		},
		{
			name: "custom category exempt from score",
			in:   Input{Category: domain.CategoryCustom, SafetyScore: 0},
			want: Default,
		},
		{
			name: "parent category block",
			in:   Input{Category: "Games", SafetyScore: 80, CategoryRule: blockedCategory(domain.OriginParent)},
			want: Verdict{Block, ReasonCategoryBlocked, SourceParent},
		},
		{
			name: "automatic category block reports AI",
			in:   Input{Category: "Gambling", SafetyScore: 80, CategoryRule: blockedCategory(domain.OriginAuto)},
			want: Verdict{Block, ReasonCategoryBlocked, SourceAI},
		},
		{
			name: "url block",
			in:   Input{Category: "News", SafetyScore: 90, URLRule: &URLRule{Status: domain.RuleBlocked, Origin: domain.OriginParent}},
			want: Verdict{Block, ReasonURLBlocked, SourceParent},
		},
		{
			name: "url allow reopens category block",
			in: Input{
				Category: "Games", SafetyScore: 80,
				CategoryRule: blockedCategory(domain.OriginParent),
				URLRule:      &URLRule{Status: domain.RuleAllowed, Origin: domain.OriginParent},
			},
			want: Verdict{Allowed, ReasonParentAllowed, SourceParent},
		},
		{
			name: "category budget exhausted",
			in: Input{
				Category: "Video", SafetyScore: 70,
				CategoryRule:        &CategoryRule{Status: domain.RuleLimited, Origin: domain.OriginParent, LimitSeconds: 1800},
				CategoryUsedSeconds: 1800,
			},
			want: Verdict{Block, ReasonTimeLimitExceeded, SourceSystem},
		},
		{
			name: "category budget with time left",
			in: Input{
				Category: "Video", SafetyScore: 70,
				CategoryRule:        &CategoryRule{Status: domain.RuleLimited, Origin: domain.OriginParent, LimitSeconds: 1800},
				CategoryUsedSeconds: 1799,
			},
			want: Default,
		},
		{
			name: "budget does not replace an earlier block reason",
			in: Input{
				Category: "Video", SafetyScore: 20,
				CategoryRule:        &CategoryRule{Status: domain.RuleLimited, Origin: domain.OriginParent, LimitSeconds: 60},
				CategoryUsedSeconds: 600,
			},
			want: Verdict{Block, ReasonDangerousContent, SourceAI},
		},
		{
			name: "app limit exhausted",
			in:   Input{Category: "Games", SafetyScore: 80, AppLimitSeconds: 900, AppUsedSeconds: 901},
			want: Verdict{Block, ReasonAppLimitExceeded, SourceSystem},
		},
		{
			name: "category budget checked before app budget",
			in: Input{
				Category: "Games", SafetyScore: 80,
				CategoryRule:        &CategoryRule{Status: domain.RuleLimited, Origin: domain.OriginParent, LimitSeconds: 60},
				CategoryUsedSeconds: 60,
				AppLimitSeconds:     60, AppUsedSeconds: 60,
			},
			want: Verdict{Block, ReasonTimeLimitExceeded, SourceSystem},
		},
		{
			name: "daily limit overrides everything",
			in: Input{
				Category: "Games", SafetyScore: 10,
				CategoryRule:      blockedCategory(domain.OriginParent),
				DailyLimitSeconds: 3600, DailyUsedSeconds: 3600,
			},
			want: Verdict{Block, ReasonDailyLimitExceeded, SourceSystem},
		},
		{
			name: "zero daily limit means unlimited",
			in:   Input{Category: "News", SafetyScore: 90, DailyLimitSeconds: 0, DailyUsedSeconds: 1e6},
			want: Default,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(tc.in))
		})
	}
}

// A low score, a blocked category and a parent URL allowance: the parent
// wins while daily time remains, and the daily budget wins once spent.
func TestEvaluate_ParentAllowanceVersusDailyBudget(t *testing.T) {
	in := Input{
		Category:          "Games",
		SafetyScore:       30,
		CategoryRule:      blockedCategory(domain.OriginParent),
		URLRule:           &URLRule{Status: domain.RuleAllowed, Origin: domain.OriginParent},
		DailyLimitSeconds: 3600,
		DailyUsedSeconds:  1200,
	}
	v := Evaluate(in)
	assert.Equal(t, Verdict{Allowed, ReasonParentAllowed, SourceParent}, v)

	in.DailyUsedSeconds = 3600
	v = Evaluate(in)
	assert.Equal(t, Verdict{Block, ReasonDailyLimitExceeded, SourceSystem}, v)
}

func TestRun_LastApplicableRuleWins(t *testing.T) {
	always := func(v Verdict) Rule {
		return func(Input, Verdict) (Verdict, bool) { return v, true }
	}
	never := func(Input, Verdict) (Verdict, bool) { return Verdict{Action: Block}, false }

	a := Verdict{Block, ReasonURLBlocked, SourceParent}
	b := Verdict{Allowed, ReasonParentAllowed, SourceParent}
	assert.Equal(t, b, Run([]Rule{always(a), always(b), never}, Input{}))
	assert.Equal(t, Default, Run(nil, Input{}))
}

func TestCategoryBudget(t *testing.T) {
	_, _, ok := CategoryBudget(nil, 10)
	assert.False(t, ok)
	_, _, ok = CategoryBudget(&CategoryRule{Status: domain.RuleBlocked, LimitSeconds: 60}, 10)
	assert.False(t, ok)

	exhausted, remaining, ok := CategoryBudget(&CategoryRule{Status: domain.RuleLimited, LimitSeconds: 600}, 200)
	require.True(t, ok)
	assert.False(t, exhausted)
	assert.EqualValues(t, 400, remaining)

	exhausted, remaining, ok = CategoryBudget(&CategoryRule{Status: domain.RuleLimited, LimitSeconds: 600}, 900)
	require.True(t, ok)
	assert.True(t, exhausted)
	assert.Zero(t, remaining)
}

func TestRemaining(t *testing.T) {
	assert.EqualValues(t, 5, Remaining(10, 5))
	assert.Zero(t, Remaining(10, 50))
}
