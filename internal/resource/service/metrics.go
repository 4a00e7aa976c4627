package service

import (
	"context"
	"time"

	"github.com/missionctl/missionctl/internal/resource/models"
)

// Metrics produces the aggregate dashboard view over the other services.
// It only reads; every number is recomputed per call.
type Metrics struct {
	catalog  *Catalog
	bookings *Bookings
	costs    *Costs
	quotas   *Quotas
}

// NewMetrics creates a metrics service over the given services.
func NewMetrics(catalog *Catalog, bookings *Bookings, costs *Costs, quotas *Quotas) *Metrics {
	return &Metrics{catalog: catalog, bookings: bookings, costs: costs, quotas: quotas}
}

// QuotaAlert identifies a quota at or above its warning threshold.
type QuotaAlert struct {
	QuotaID      string  `json:"quota_id"`
	AgentID      string  `json:"agent_id"`
	Type         string  `json:"type"`
	Limit        float64 `json:"limit"`
	CurrentUsage float64 `json:"current_usage"`
	Percentage   float64 `json:"percentage"`
	Exceeded     bool    `json:"exceeded"`
}

// Snapshot is the aggregate metrics view.
type Snapshot struct {
	TotalResources    int            `json:"total_resources"`
	ResourcesByStatus map[string]int `json:"resources_by_status"`
	ResourcesByType   map[string]int `json:"resources_by_type"`
	ActiveBookings    int            `json:"active_bookings"`
	MonthlySpend      float64        `json:"monthly_spend"`
	QuotasNearLimit   []QuotaAlert   `json:"quotas_near_limit"`
	GeneratedAt       time.Time      `json:"generated_at"`
}

// Collect computes the current metrics snapshot.
func (m *Metrics) Collect(ctx context.Context) (*Snapshot, error) {
	snapshot := &Snapshot{
		ResourcesByStatus: make(map[string]int),
		ResourcesByType:   make(map[string]int),
		QuotasNearLimit:   []QuotaAlert{},
		GeneratedAt:       time.Now().UTC(),
	}

	resources, err := m.catalog.List(ctx, ResourceFilter{})
	if err != nil {
		return nil, err
	}
	snapshot.TotalResources = len(resources)
	for _, r := range resources {
		snapshot.ResourcesByStatus[string(r.Status)]++
		snapshot.ResourcesByType[string(r.Type)]++
	}

	bookings, err := m.bookings.List(ctx, BookingFilter{Status: string(models.BookingStatusActive)})
	if err != nil {
		return nil, err
	}
	snapshot.ActiveBookings = len(bookings)

	monthStart := time.Date(snapshot.GeneratedAt.Year(), snapshot.GeneratedAt.Month(), 1, 0, 0, 0, 0, time.UTC)
	costs, err := m.costs.Summarize(ctx, CostFilter{From: &monthStart})
	if err != nil {
		return nil, err
	}
	snapshot.MonthlySpend = costs.Total

	quotas, err := m.quotas.Get(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, q := range quotas {
		if q.Limit <= 0 || q.CurrentUsage/q.Limit < q.WarningThreshold {
			continue
		}
		snapshot.QuotasNearLimit = append(snapshot.QuotasNearLimit, QuotaAlert{
			QuotaID:      q.ID,
			AgentID:      q.AgentID,
			Type:         q.Type,
			Limit:        q.Limit,
			CurrentUsage: q.CurrentUsage,
			Percentage:   percentage(q.CurrentUsage, q.Limit),
			Exceeded:     q.CurrentUsage >= q.Limit,
		})
	}

	return snapshot, nil
}
