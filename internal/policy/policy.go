// Package policy implements the access decision as an ordered cascade of
// pure rules over an immutable verdict. Rules never touch storage: callers
// gather an Input snapshot first and evaluate it here.
//
// Order matters and the last applicable rule wins:
//
//  1. default ALLOWED
//  2. low safety score blocks (Custom category exempt)
//  3. BLOCKED category rule blocks
//  4. URL rule blocks or reopens
//  5. exhausted category (or app) budget blocks, unless already blocked
//  6. exhausted global daily budget blocks unconditionally
package policy

import "github.com/tbourn/go-parental-backend/internal/domain"

// Action is the final decision.
type Action string

const (
	Allowed Action = "ALLOWED"
	Block   Action = "BLOCK"
)

// Reason explains a decision.
type Reason string

const (
	ReasonNone               Reason = "NONE"
	ReasonDangerousContent   Reason = "DANGEROUS_CONTENT"
	ReasonCategoryBlocked    Reason = "CATEGORY_BLOCKED"
	ReasonURLBlocked         Reason = "URL_BLOCKED"
	ReasonParentAllowed      Reason = "PARENT_ALLOWED"
	ReasonTimeLimitExceeded  Reason = "TIME_LIMIT_EXCEEDED"
	ReasonAppLimitExceeded   Reason = "APP_LIMIT_EXCEEDED"
	ReasonDailyLimitExceeded Reason = "DAILY_LIMIT_EXCEEDED"
)

// Source names who is responsible for a decision.
type Source string

const (
	SourceSystem Source = "SYSTEM"
	SourceParent Source = "PARENT"
	SourceAI     Source = "AI"
)

// DangerThreshold is the safety score below which content is blocked.
const DangerThreshold = 50

// Verdict is the immutable result threaded through the cascade.
type Verdict struct {
	Action Action `json:"action"`
	Reason Reason `json:"reason"`
	Source Source `json:"source"`
}

// Blocked reports whether the verdict denies access.
func (v Verdict) Blocked() bool { return v.Action == Block }

// CategoryRule is the subset of a category rule the cascade needs.
type CategoryRule struct {
	Status       domain.RuleStatus
	Origin       domain.RuleOrigin
	LimitSeconds int64 // > 0 only for parent LIMITED rules
}

// URLRule is the subset of a URL rule the cascade needs.
type URLRule struct {
	Status domain.RuleStatus
	Origin domain.RuleOrigin
}

// Input is everything the cascade looks at. Usage values are for the
// current local day.
type Input struct {
	Category    string
	SafetyScore int

	CategoryRule *CategoryRule
	URLRule      *URLRule

	CategoryUsedSeconds int64

	AppLimitSeconds int64 // 0 = no app limit for this domain
	AppUsedSeconds  int64

	DailyLimitSeconds int64 // 0 = no global limit
	DailyUsedSeconds  int64
}

// Rule inspects the input and the verdict so far. It returns the new verdict
// and whether it applied.
type Rule func(in Input, cur Verdict) (Verdict, bool)

// Default is the starting verdict.
var Default = Verdict{Action: Allowed, Reason: ReasonNone, Source: SourceSystem}

// Cascade is the production rule order.
var Cascade = []Rule{
	SafetyRule,
	CategoryBlockRule,
	URLRuleOverride,
	CategoryBudgetRule,
	AppBudgetRule,
	DailyBudgetRule,
}

// Evaluate runs the production cascade.
func Evaluate(in Input) Verdict { return Run(Cascade, in) }

// Run folds rules over the default verdict in order.
func Run(rules []Rule, in Input) Verdict {
	v := Default
	for _, r := range rules {
		if next, ok := r(in, v); ok {
			v = next
		}
	}
	return v
}

func ruleSource(o domain.RuleOrigin) Source {
	if o == domain.OriginAuto {
		return SourceAI
	}
	return SourceParent
}

// SafetyRule blocks content scored below DangerThreshold. Parent-added
// Custom domains are exempt.
func SafetyRule(in Input, _ Verdict) (Verdict, bool) {
	if in.SafetyScore < DangerThreshold && in.Category != domain.CategoryCustom {
		return Verdict{Action: Block, Reason: ReasonDangerousContent, Source: SourceAI}, true
	}
	return Verdict{}, false
}

// CategoryBlockRule applies a BLOCKED category rule.
func CategoryBlockRule(in Input, _ Verdict) (Verdict, bool) {
	if in.CategoryRule == nil || in.CategoryRule.Status != domain.RuleBlocked {
		return Verdict{}, false
	}
	return Verdict{Action: Block, Reason: ReasonCategoryBlocked, Source: ruleSource(in.CategoryRule.Origin)}, true
}

// URLRuleOverride applies a per-domain rule. ALLOWED reopens the domain
// regardless of what earlier rules decided.
func URLRuleOverride(in Input, _ Verdict) (Verdict, bool) {
	if in.URLRule == nil {
		return Verdict{}, false
	}
	switch in.URLRule.Status {
	case domain.RuleBlocked:
		return Verdict{Action: Block, Reason: ReasonURLBlocked, Source: ruleSource(in.URLRule.Origin)}, true
	case domain.RuleAllowed:
		return Verdict{Action: Allowed, Reason: ReasonParentAllowed, Source: SourceParent}, true
	}
	return Verdict{}, false
}

// CategoryBudgetRule blocks a LIMITED category whose budget is used up.
// It never overrides an earlier block.
func CategoryBudgetRule(in Input, cur Verdict) (Verdict, bool) {
	if cur.Blocked() {
		return Verdict{}, false
	}
	r := in.CategoryRule
	if r == nil || r.Status != domain.RuleLimited || r.LimitSeconds <= 0 {
		return Verdict{}, false
	}
	if in.CategoryUsedSeconds >= r.LimitSeconds {
		return Verdict{Action: Block, Reason: ReasonTimeLimitExceeded, Source: SourceSystem}, true
	}
	return Verdict{}, false
}

// AppBudgetRule blocks a domain whose app limit is used up. Same precedence
// as CategoryBudgetRule.
func AppBudgetRule(in Input, cur Verdict) (Verdict, bool) {
	if cur.Blocked() || in.AppLimitSeconds <= 0 {
		return Verdict{}, false
	}
	if in.AppUsedSeconds >= in.AppLimitSeconds {
		return Verdict{Action: Block, Reason: ReasonAppLimitExceeded, Source: SourceSystem}, true
	}
	return Verdict{}, false
}

// DailyBudgetRule blocks everything once the global daily budget is spent,
// including domains a parent explicitly allowed.
func DailyBudgetRule(in Input, _ Verdict) (Verdict, bool) {
	if in.DailyLimitSeconds > 0 && in.DailyUsedSeconds >= in.DailyLimitSeconds {
		return Verdict{Action: Block, Reason: ReasonDailyLimitExceeded, Source: SourceSystem}, true
	}
	return Verdict{}, false
}

// CategoryBudget reports the step-5 state for a category: whether it is
// exhausted and the seconds left. ok is false when the category carries no
// budget.
func CategoryBudget(rule *CategoryRule, usedSeconds int64) (exhausted bool, remaining int64, ok bool) {
	if rule == nil || rule.Status != domain.RuleLimited || rule.LimitSeconds <= 0 {
		return false, 0, false
	}
	remaining = rule.LimitSeconds - usedSeconds
	if remaining < 0 {
		remaining = 0
	}
	return usedSeconds >= rule.LimitSeconds, remaining, true
}

// Remaining returns limit - used floored at zero.
func Remaining(limit, used int64) int64 {
	if r := limit - used; r > 0 {
		return r
	}
	return 0
}
