package service

import (
	"context"
	"testing"
	"time"

	"github.com/missionctl/missionctl/internal/resource/models"
)

func TestMetrics_Collect(t *testing.T) {
	catalog, bookings, costs, quotas, _ := setupServices(t)
	metrics := NewMetrics(catalog, bookings, costs, quotas)
	ctx := context.Background()

	gpu := mustCreateResource(t, catalog, "GPU-A", true)
	if _, err := catalog.Create(ctx, &CreateResourceRequest{
		Name:   "retired",
		Type:   models.ResourceTypeAPI,
		Status: models.ResourceStatusDeprecated,
	}); err != nil {
		t.Fatalf("create should succeed: %v", err)
	}

	if _, err := bookings.Book(ctx, &BookRequest{
		ResourceID: gpu.ID,
		AgentID:    "neo",
		StartTime:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("booking should succeed: %v", err)
	}

	// One cost this month, one long past.
	if _, err := costs.Record(ctx, &RecordCostRequest{Type: "api_call", Amount: 4}); err != nil {
		t.Fatalf("record should succeed: %v", err)
	}
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := costs.Record(ctx, &RecordCostRequest{Type: "api_call", Amount: 100, Timestamp: &past}); err != nil {
		t.Fatalf("record should succeed: %v", err)
	}

	quota, err := quotas.Set(ctx, &SetQuotaRequest{AgentID: "neo", Type: "tokens", Limit: 100})
	if err != nil {
		t.Fatalf("set should succeed: %v", err)
	}
	if _, err := quotas.RecordUsage(ctx, quota.ID, 90); err != nil {
		t.Fatalf("record usage should succeed: %v", err)
	}

	snapshot, err := metrics.Collect(ctx)
	if err != nil {
		t.Fatalf("collect should succeed: %v", err)
	}

	if snapshot.TotalResources != 2 {
		t.Errorf("expected 2 resources, got %d", snapshot.TotalResources)
	}
	if snapshot.ResourcesByStatus["active"] != 1 || snapshot.ResourcesByStatus["deprecated"] != 1 {
		t.Errorf("unexpected status breakdown: %v", snapshot.ResourcesByStatus)
	}
	if snapshot.ResourcesByType["compute"] != 1 || snapshot.ResourcesByType["api"] != 1 {
		t.Errorf("unexpected type breakdown: %v", snapshot.ResourcesByType)
	}
	if snapshot.ActiveBookings != 1 {
		t.Errorf("expected 1 active booking, got %d", snapshot.ActiveBookings)
	}
	if snapshot.MonthlySpend != 4 {
		t.Errorf("expected monthly spend 4, got %v", snapshot.MonthlySpend)
	}
	if len(snapshot.QuotasNearLimit) != 1 || snapshot.QuotasNearLimit[0].QuotaID != quota.ID {
		t.Errorf("expected the 90%% quota in quotas_near_limit, got %v", snapshot.QuotasNearLimit)
	}
	if snapshot.QuotasNearLimit[0].Exceeded {
		t.Error("90 of 100 is near the limit, not exceeded")
	}
}
