/**
 * @description
 * Token budget tracker for the external product-data API.
 * Estimates how much of the daily call allowance is left and gates every
 * billable request the engine makes.
 *
 * @notes
 * - The state is an explicit value owned by the orchestrator, not a package
 *   singleton; tests get a fresh tracker each time.
 * - The counter resets lazily on the first access after a calendar-day
 *   boundary. No background timer: a process idle across midnight still
 *   resets correctly on its next call.
 * - Single-writer by construction. The engine processes batches strictly
 *   sequentially, so the counter is never read-then-decremented by two
 *   callers at once. Not safe for concurrent use.
 */

package services

import (
	"context"
	"time"

	"github.com/pricescout-project/backend/internal/logger"
)

const (
	budgetWarnThreshold     = 0.85
	budgetCriticalThreshold = 0.95
)

// TokenBudgetState is the mutable counter behind the tracker.
type TokenBudgetState struct {
	TokensUsedToday int
	LastResetDate   string // YYYY-MM-DD
}

// BudgetStatus is a read-only snapshot of the tracker.
type BudgetStatus struct {
	Used        int     `json:"used"`
	Remaining   int     `json:"remaining"`
	PercentUsed float64 `json:"percent_used"`
	CanProceed  bool    `json:"can_proceed"`
}

// BudgetDecision is the admission result for one prospective spend.
type BudgetDecision struct {
	Allowed bool
	// Wait is how long to sleep for the refill to restore enough tokens.
	// Only meaningful when Allowed is false.
	Wait time.Duration
}

// TokenBudget tracks daily token usage against a fixed allowance.
type TokenBudget struct {
	DailyLimit          int
	RefillRatePerMinute int
	State               *TokenBudgetState

	now func() time.Time
}

// NewTokenBudget creates a tracker with fresh state.
func NewTokenBudget(dailyLimit, refillRatePerMinute int) *TokenBudget {
	b := &TokenBudget{
		DailyLimit:          dailyLimit,
		RefillRatePerMinute: refillRatePerMinute,
		State:               &TokenBudgetState{},
		now:                 time.Now,
	}
	b.State.LastResetDate = b.today()
	return b
}

// RecordUsage adds n tokens to today's counter. Never fails; a tracker that
// cannot account is worse than one that over-counts.
func (b *TokenBudget) RecordUsage(n int) {
	b.maybeReset()
	b.State.TokensUsedToday += n

	pct := b.percentUsed()
	switch {
	case pct >= budgetCriticalThreshold:
		logger.Error("🚨 Token budget critical: %.1f%% of daily allowance used (%d/%d)",
			pct*100, b.State.TokensUsedToday, b.DailyLimit)
	case pct >= budgetWarnThreshold:
		logger.Info("⚠️ Token budget warning: %.1f%% of daily allowance used (%d/%d)",
			pct*100, b.State.TokensUsedToday, b.DailyLimit)
	}
}

// Status returns the current snapshot, resetting first if the day rolled over.
func (b *TokenBudget) Status() BudgetStatus {
	b.maybeReset()
	remaining := b.DailyLimit - b.State.TokensUsedToday
	if remaining < 0 {
		remaining = 0
	}
	pct := b.percentUsed()
	return BudgetStatus{
		Used:        b.State.TokensUsedToday,
		Remaining:   remaining,
		PercentUsed: pct,
		CanProceed:  pct < budgetCriticalThreshold,
	}
}

// CheckBudget decides whether a spend of `required` tokens may proceed now.
// When it may not, Wait is sized from the refill rate so the caller can sleep
// exactly long enough to regain the shortfall.
func (b *TokenBudget) CheckBudget(required int) BudgetDecision {
	status := b.Status()
	if status.CanProceed && status.Remaining >= required {
		return BudgetDecision{Allowed: true}
	}

	shortfall := required - status.Remaining
	if shortfall < 1 {
		shortfall = 1
	}
	rate := b.RefillRatePerMinute
	if rate < 1 {
		rate = 1
	}
	minutes := (shortfall + rate - 1) / rate
	if minutes < 1 {
		minutes = 1
	}
	return BudgetDecision{
		Allowed: false,
		Wait:    time.Duration(minutes) * time.Minute,
	}
}

// WaitFor blocks until a spend of `required` tokens is admitted, sleeping in
// refill-sized steps. This is the engine's only suspension primitive besides
// the inter-batch politeness delay.
func (b *TokenBudget) WaitFor(ctx context.Context, required int) error {
	for {
		decision := b.CheckBudget(required)
		if decision.Allowed {
			return nil
		}
		logger.Info("⏳ Token budget low, sleeping %s to regain %d tokens", decision.Wait, required)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(decision.Wait):
		}
	}
}

func (b *TokenBudget) percentUsed() float64 {
	if b.DailyLimit <= 0 {
		return 1
	}
	return float64(b.State.TokensUsedToday) / float64(b.DailyLimit)
}

// maybeReset zeroes the counter on the first touch after a day boundary.
func (b *TokenBudget) maybeReset() {
	today := b.today()
	if b.State.LastResetDate != today {
		b.State.TokensUsedToday = 0
		b.State.LastResetDate = today
	}
}

func (b *TokenBudget) today() string {
	return b.now().Format("2006-01-02")
}
