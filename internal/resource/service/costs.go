package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/missionctl/missionctl/internal/common/errors"
	"github.com/missionctl/missionctl/internal/common/logger"
	"github.com/missionctl/missionctl/internal/events/bus"
	"github.com/missionctl/missionctl/internal/resource/models"
	"github.com/missionctl/missionctl/internal/resource/store"
)

// Costs is the append-only spend ledger. Records are created and then
// immutable; all aggregation happens at query time.
type Costs struct {
	store  store.Store
	bus    bus.EventBus
	logger *logger.Logger
}

// NewCosts creates a cost ledger service.
func NewCosts(st store.Store, eventBus bus.EventBus, log *logger.Logger) *Costs {
	return &Costs{store: st, bus: eventBus, logger: log}
}

// RecordCostRequest carries the fields accepted when recording a spend event.
type RecordCostRequest struct {
	AgentID     string
	Type        string
	ResourceID  string
	Description string
	Amount      float64
	Currency    string
	Timestamp   *time.Time
}

// CostFilter narrows Summarize results. Date bounds are inclusive.
type CostFilter struct {
	AgentID    string
	Type       string
	ResourceID string
	From       *time.Time
	To         *time.Time
}

// CostSummary is the aggregation produced by Summarize. Sums are plain
// floating-point addition; rounding belongs to higher-level views.
type CostSummary struct {
	Total      float64            `json:"total"`
	ByAgent    map[string]float64 `json:"by_agent"`
	ByType     map[string]float64 `json:"by_type"`
	ByResource map[string]float64 `json:"by_resource"`
	Items      []*models.Cost     `json:"items"`
}

// Record appends a spend event to the ledger.
func (s *Costs) Record(ctx context.Context, req *RecordCostRequest) (*models.Cost, error) {
	if req.Type == "" {
		return nil, apperrors.ValidationError("type", "cost type is required")
	}

	cost := &models.Cost{
		ID:          uuid.New().String(),
		AgentID:     req.AgentID,
		Type:        req.Type,
		ResourceID:  req.ResourceID,
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Timestamp:   time.Now().UTC(),
	}
	if cost.Currency == "" {
		cost.Currency = "USD"
	}
	if req.Timestamp != nil {
		cost.Timestamp = *req.Timestamp
	}

	if err := store.PutRecord(ctx, s.store, store.KindCost, cost.ID, cost); err != nil {
		return nil, apperrors.StorageError("record cost", err)
	}

	s.logger.Debug("Cost recorded",
		zap.String("cost_id", cost.ID),
		zap.String("agent_id", cost.AgentID),
		zap.Float64("amount", cost.Amount))
	publishEvent(ctx, s.bus, s.logger, store.KindCost, "created", cost)
	return cost, nil
}

// Summarize filters the ledger and aggregates spend by agent, type and resource.
func (s *Costs) Summarize(ctx context.Context, filter CostFilter) (*CostSummary, error) {
	costs, err := store.ListRecords[models.Cost](ctx, s.store, store.KindCost)
	if err != nil {
		return nil, apperrors.StorageError("list costs", err)
	}

	summary := &CostSummary{
		ByAgent:    make(map[string]float64),
		ByType:     make(map[string]float64),
		ByResource: make(map[string]float64),
		Items:      make([]*models.Cost, 0, len(costs)),
	}

	for _, cost := range costs {
		if filter.AgentID != "" && cost.AgentID != filter.AgentID {
			continue
		}
		if filter.Type != "" && cost.Type != filter.Type {
			continue
		}
		if filter.ResourceID != "" && cost.ResourceID != filter.ResourceID {
			continue
		}
		if filter.From != nil && cost.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && cost.Timestamp.After(*filter.To) {
			continue
		}

		summary.Total += cost.Amount
		if cost.AgentID != "" {
			summary.ByAgent[cost.AgentID] += cost.Amount
		}
		if cost.Type != "" {
			summary.ByType[cost.Type] += cost.Amount
		}
		if cost.ResourceID != "" {
			summary.ByResource[cost.ResourceID] += cost.Amount
		}
		summary.Items = append(summary.Items, cost)
	}

	sort.Slice(summary.Items, func(i, j int) bool {
		return summary.Items[i].Timestamp.Before(summary.Items[j].Timestamp)
	})
	return summary, nil
}
