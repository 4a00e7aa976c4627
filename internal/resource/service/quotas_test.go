package service

import (
	"context"
	"testing"

	"github.com/missionctl/missionctl/internal/common/errors"
	"github.com/missionctl/missionctl/internal/resource/models"
)

func TestQuotas_CheckAndRecordUsage(t *testing.T) {
	_, _, _, quotas, _ := setupServices(t)
	ctx := context.Background()

	quota, err := quotas.Set(ctx, &SetQuotaRequest{
		AgentID: "neo",
		Type:    "tokens",
		Limit:   1000,
	})
	if err != nil {
		t.Fatalf("set should succeed: %v", err)
	}
	if quota.Period != models.QuotaPeriodMonthly {
		t.Errorf("expected default period monthly, got %s", quota.Period)
	}
	if quota.WarningThreshold != 0.8 {
		t.Errorf("expected default warning threshold 0.8, got %v", quota.WarningThreshold)
	}

	check, err := quotas.Check(ctx, "neo", "tokens", 500)
	if err != nil {
		t.Fatalf("check should succeed: %v", err)
	}
	if !check.Allowed {
		t.Error("500 of 1000 should be allowed")
	}
	if check.Remaining != 1000 {
		t.Errorf("expected remaining 1000, got %v", check.Remaining)
	}

	usage, err := quotas.RecordUsage(ctx, quota.ID, 900)
	if err != nil {
		t.Fatalf("record usage should succeed: %v", err)
	}
	if usage.CurrentUsage != 900 {
		t.Errorf("expected current usage 900, got %v", usage.CurrentUsage)
	}
	if usage.Exceeded {
		t.Error("900 of 1000 should not be exceeded")
	}
	if !usage.Warning {
		t.Error("90%% usage should be at warning (threshold 80%%)")
	}
	if usage.Percentage != 90 {
		t.Errorf("expected percentage 90, got %v", usage.Percentage)
	}

	check, err = quotas.Check(ctx, "neo", "tokens", 500)
	if err != nil {
		t.Fatalf("check should succeed: %v", err)
	}
	if check.Allowed {
		t.Error("900+500 > 1000 should not be allowed")
	}
}

func TestQuotas_CheckIsReadOnly(t *testing.T) {
	_, _, _, quotas, _ := setupServices(t)
	ctx := context.Background()

	quota, err := quotas.Set(ctx, &SetQuotaRequest{AgentID: "neo", Type: "tokens", Limit: 100})
	if err != nil {
		t.Fatalf("set should succeed: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := quotas.Check(ctx, "neo", "tokens", 10); err != nil {
			t.Fatalf("check should succeed: %v", err)
		}
	}

	after, err := quotas.Get(ctx, "neo")
	if err != nil {
		t.Fatalf("get should succeed: %v", err)
	}
	if len(after) != 1 {
		t.Fatalf("expected 1 quota, got %d", len(after))
	}
	if after[0].CurrentUsage != 0 {
		t.Errorf("check must never mutate current_usage, got %v", after[0].CurrentUsage)
	}
	_ = quota
}

func TestQuotas_GlobalFallback(t *testing.T) {
	_, _, _, quotas, _ := setupServices(t)
	ctx := context.Background()

	global, err := quotas.Set(ctx, &SetQuotaRequest{
		AgentID: models.QuotaAgentGlobal,
		Type:    "tokens",
		Limit:   50,
	})
	if err != nil {
		t.Fatalf("set should succeed: %v", err)
	}

	// Only a global quota exists, so any agent is governed by it.
	check, err := quotas.Check(ctx, "agentX", "tokens", 100)
	if err != nil {
		t.Fatalf("check should succeed: %v", err)
	}
	if check.Allowed {
		t.Error("global quota of 50 should deny 100")
	}
	if check.QuotaID != global.ID {
		t.Errorf("expected global quota %s to govern, got %s", global.ID, check.QuotaID)
	}

	// An agent-specific quota takes precedence over the global one.
	specific, err := quotas.Set(ctx, &SetQuotaRequest{
		AgentID: "agentX",
		Type:    "tokens",
		Limit:   500,
	})
	if err != nil {
		t.Fatalf("set should succeed: %v", err)
	}
	check, err = quotas.Check(ctx, "agentX", "tokens", 100)
	if err != nil {
		t.Fatalf("check should succeed: %v", err)
	}
	if !check.Allowed {
		t.Error("agent-specific quota of 500 should allow 100")
	}
	if check.QuotaID != specific.ID {
		t.Errorf("expected specific quota %s to govern, got %s", specific.ID, check.QuotaID)
	}
}

func TestQuotas_NoQuotaMeansUnlimited(t *testing.T) {
	_, _, _, quotas, _ := setupServices(t)

	check, err := quotas.Check(context.Background(), "neo", "tokens", 1e9)
	if err != nil {
		t.Fatalf("check should succeed: %v", err)
	}
	if !check.Allowed {
		t.Error("absence of a quota means unlimited")
	}
	if check.Reason != "No quota defined" {
		t.Errorf("expected reason 'No quota defined', got %q", check.Reason)
	}
}

func TestQuotas_Get_ScopedIncludesGlobal(t *testing.T) {
	_, _, _, quotas, _ := setupServices(t)
	ctx := context.Background()

	if _, err := quotas.Set(ctx, &SetQuotaRequest{AgentID: "neo", Type: "tokens", Limit: 10}); err != nil {
		t.Fatalf("set should succeed: %v", err)
	}
	if _, err := quotas.Set(ctx, &SetQuotaRequest{AgentID: models.QuotaAgentGlobal, Type: "api_calls", Limit: 10}); err != nil {
		t.Fatalf("set should succeed: %v", err)
	}
	if _, err := quotas.Set(ctx, &SetQuotaRequest{AgentID: "trinity", Type: "tokens", Limit: 10}); err != nil {
		t.Fatalf("set should succeed: %v", err)
	}

	scoped, err := quotas.Get(ctx, "neo")
	if err != nil {
		t.Fatalf("get should succeed: %v", err)
	}
	if len(scoped) != 2 {
		t.Errorf("expected neo's quota plus the global one, got %d", len(scoped))
	}

	all, err := quotas.Get(ctx, "")
	if err != nil {
		t.Fatalf("get should succeed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected all 3 quotas, got %d", len(all))
	}
}

func TestQuotas_Reset(t *testing.T) {
	_, _, _, quotas, _ := setupServices(t)
	ctx := context.Background()

	quota, err := quotas.Set(ctx, &SetQuotaRequest{AgentID: "neo", Type: "tokens", Limit: 100})
	if err != nil {
		t.Fatalf("set should succeed: %v", err)
	}
	if _, err := quotas.RecordUsage(ctx, quota.ID, 80); err != nil {
		t.Fatalf("record usage should succeed: %v", err)
	}

	reset, err := quotas.Reset(ctx, quota.ID)
	if err != nil {
		t.Fatalf("reset should succeed: %v", err)
	}
	if reset.CurrentUsage != 0 {
		t.Errorf("expected usage 0 after reset, got %v", reset.CurrentUsage)
	}
	if !reset.LastReset.After(quota.LastReset) {
		t.Error("last_reset should be refreshed")
	}
}

func TestQuotas_RecordUsage_NotFound(t *testing.T) {
	_, _, _, quotas, _ := setupServices(t)

	if _, err := quotas.RecordUsage(context.Background(), "missing", 1); !errors.IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if _, err := quotas.Reset(context.Background(), "missing"); !errors.IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestQuotas_CheckAndReserve(t *testing.T) {
	_, _, _, quotas, _ := setupServices(t)
	ctx := context.Background()

	quota, err := quotas.Set(ctx, &SetQuotaRequest{AgentID: "neo", Type: "tokens", Limit: 100})
	if err != nil {
		t.Fatalf("set should succeed: %v", err)
	}

	check, err := quotas.CheckAndReserve(ctx, "neo", "tokens", 60)
	if err != nil {
		t.Fatalf("reserve should succeed: %v", err)
	}
	if !check.Allowed || check.CurrentUsage != 60 {
		t.Errorf("expected reserved usage 60, got allowed=%v usage=%v", check.Allowed, check.CurrentUsage)
	}

	// A second reserve that would exceed the limit is denied and records nothing.
	check, err = quotas.CheckAndReserve(ctx, "neo", "tokens", 60)
	if err != nil {
		t.Fatalf("reserve should succeed: %v", err)
	}
	if check.Allowed {
		t.Error("60+60 > 100 should be denied")
	}

	after, err := quotas.Get(ctx, "neo")
	if err != nil {
		t.Fatalf("get should succeed: %v", err)
	}
	if after[0].CurrentUsage != 60 {
		t.Errorf("denied reserve must not record usage, got %v", after[0].CurrentUsage)
	}
	_ = quota
}

func TestQuotas_RecordUsage_NegativeDelta(t *testing.T) {
	_, _, _, quotas, _ := setupServices(t)
	ctx := context.Background()

	quota, err := quotas.Set(ctx, &SetQuotaRequest{AgentID: "neo", Type: "tokens", Limit: 100, CurrentUsage: 50})
	if err != nil {
		t.Fatalf("set should succeed: %v", err)
	}

	usage, err := quotas.RecordUsage(ctx, quota.ID, -20.5)
	if err != nil {
		t.Fatalf("record usage should succeed: %v", err)
	}
	if usage.CurrentUsage != 29.5 {
		t.Errorf("expected usage 29.5, got %v", usage.CurrentUsage)
	}
}
