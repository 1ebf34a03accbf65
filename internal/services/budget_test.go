package services

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRecordUsageIsAdditive(t *testing.T) {
	b := NewTokenBudget(1000, 5)

	b.RecordUsage(5)
	b.RecordUsage(3)

	if b.State.TokensUsedToday != 8 {
		t.Fatalf("expected 8 tokens used, got %d", b.State.TokensUsedToday)
	}
}

func TestDayRolloverResetsLazily(t *testing.T) {
	b := NewTokenBudget(1000, 5)
	b.State.TokensUsedToday = 900
	b.State.LastResetDate = time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	status := b.Status()

	if status.Used != 0 {
		t.Fatalf("expected counter reset to 0 after day boundary, got %d", status.Used)
	}
	if status.Remaining != 1000 {
		t.Fatalf("expected full allowance after reset, got %d", status.Remaining)
	}
}

func TestCheckBudgetAllowsWithinAllowance(t *testing.T) {
	b := NewTokenBudget(1000, 5)
	b.RecordUsage(100)

	decision := b.CheckBudget(500)
	if !decision.Allowed {
		t.Fatal("expected spend within remaining allowance to be allowed")
	}
}

func TestCheckBudgetDeniesAndComputesWait(t *testing.T) {
	b := NewTokenBudget(100, 3)
	b.RecordUsage(80)

	decision := b.CheckBudget(50)
	if decision.Allowed {
		t.Fatal("expected spend above remaining allowance to be denied")
	}
	if decision.Wait <= 0 {
		t.Fatal("expected a positive wait duration when denied")
	}
	// shortfall 30 tokens at 3/min = 10 minutes
	if decision.Wait != 10*time.Minute {
		t.Fatalf("expected 10m wait, got %s", decision.Wait)
	}
}

func TestStatusCriticalThresholdBlocks(t *testing.T) {
	b := NewTokenBudget(100, 3)
	b.RecordUsage(95)

	status := b.Status()
	if status.CanProceed {
		t.Fatal("expected CanProceed=false at 95% usage")
	}
	if b.CheckBudget(1).Allowed {
		t.Fatal("expected CheckBudget to deny past the critical threshold")
	}
}

func TestStatusBelowWarnProceeds(t *testing.T) {
	b := NewTokenBudget(100, 3)
	b.RecordUsage(50)

	status := b.Status()
	if !status.CanProceed {
		t.Fatal("expected CanProceed=true at 50% usage")
	}
	if status.Remaining != 50 {
		t.Fatalf("expected 50 remaining, got %d", status.Remaining)
	}
}

func TestRolloverAppliesOnWriteToo(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 23, 50, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 0, 5, 0, 0, time.UTC)

	b := NewTokenBudget(1000, 5)
	b.now = fixedClock(day1)
	b.State.LastResetDate = b.today()
	b.RecordUsage(700)

	b.now = fixedClock(day2)
	b.RecordUsage(10)

	if b.State.TokensUsedToday != 10 {
		t.Fatalf("expected write after midnight to reset first, got %d", b.State.TokensUsedToday)
	}
}
