package service

import (
	"context"
	"testing"
	"time"

	"github.com/missionctl/missionctl/internal/common/errors"
)

func TestCosts_Record_Defaults(t *testing.T) {
	_, _, costs, _, _ := setupServices(t)

	cost, err := costs.Record(context.Background(), &RecordCostRequest{
		AgentID: "tank",
		Type:    "api_call",
		Amount:  5,
	})
	if err != nil {
		t.Fatalf("record should succeed: %v", err)
	}
	if cost.Currency != "USD" {
		t.Errorf("expected default currency USD, got %s", cost.Currency)
	}
	if cost.ID == "" || cost.Timestamp.IsZero() {
		t.Error("record should assign id and timestamp")
	}
}

func TestCosts_Record_RequiresType(t *testing.T) {
	_, _, costs, _, _ := setupServices(t)

	_, err := costs.Record(context.Background(), &RecordCostRequest{Amount: 5})
	if !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCosts_Summarize(t *testing.T) {
	_, _, costs, _, _ := setupServices(t)
	ctx := context.Background()

	for _, req := range []*RecordCostRequest{
		{AgentID: "tank", Type: "api_call", Amount: 5},
		{AgentID: "tank", Type: "compute", Amount: 3},
		{AgentID: "neo", Type: "api_call", Amount: 2},
	} {
		if _, err := costs.Record(ctx, req); err != nil {
			t.Fatalf("record should succeed: %v", err)
		}
	}

	summary, err := costs.Summarize(ctx, CostFilter{})
	if err != nil {
		t.Fatalf("summarize should succeed: %v", err)
	}
	if summary.Total != 10 {
		t.Errorf("expected total 10, got %v", summary.Total)
	}
	if summary.ByAgent["tank"] != 8 || summary.ByAgent["neo"] != 2 {
		t.Errorf("unexpected by_agent aggregation: %v", summary.ByAgent)
	}
	if summary.ByType["api_call"] != 7 || summary.ByType["compute"] != 3 {
		t.Errorf("unexpected by_type aggregation: %v", summary.ByType)
	}
	if len(summary.Items) != 3 {
		t.Errorf("expected 3 items, got %d", len(summary.Items))
	}
}

func TestCosts_Summarize_Filtered(t *testing.T) {
	_, _, costs, _, _ := setupServices(t)
	ctx := context.Background()

	old := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, err := costs.Record(ctx, &RecordCostRequest{AgentID: "tank", Type: "api_call", Amount: 5, Timestamp: &old}); err != nil {
		t.Fatalf("record should succeed: %v", err)
	}
	if _, err := costs.Record(ctx, &RecordCostRequest{AgentID: "tank", Type: "compute", Amount: 3}); err != nil {
		t.Fatalf("record should succeed: %v", err)
	}
	if _, err := costs.Record(ctx, &RecordCostRequest{AgentID: "neo", Type: "api_call", Amount: 2}); err != nil {
		t.Fatalf("record should succeed: %v", err)
	}

	byAgent, err := costs.Summarize(ctx, CostFilter{AgentID: "tank"})
	if err != nil {
		t.Fatalf("summarize should succeed: %v", err)
	}
	if byAgent.Total != 8 {
		t.Errorf("expected tank total 8, got %v", byAgent.Total)
	}

	byType, err := costs.Summarize(ctx, CostFilter{Type: "api_call"})
	if err != nil {
		t.Fatalf("summarize should succeed: %v", err)
	}
	if byType.Total != 7 {
		t.Errorf("expected api_call total 7, got %v", byType.Total)
	}

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent, err := costs.Summarize(ctx, CostFilter{From: &from})
	if err != nil {
		t.Fatalf("summarize should succeed: %v", err)
	}
	if recent.Total != 5 {
		t.Errorf("expected recent total 5, got %v", recent.Total)
	}
}

func TestCosts_Summarize_Empty(t *testing.T) {
	_, _, costs, _, _ := setupServices(t)

	summary, err := costs.Summarize(context.Background(), CostFilter{})
	if err != nil {
		t.Fatalf("summarize should succeed: %v", err)
	}
	if summary.Total != 0 || len(summary.Items) != 0 {
		t.Errorf("expected empty summary, got %+v", summary)
	}
}
