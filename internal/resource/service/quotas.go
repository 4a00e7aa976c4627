package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/missionctl/missionctl/internal/common/errors"
	"github.com/missionctl/missionctl/internal/common/logger"
	"github.com/missionctl/missionctl/internal/events/bus"
	"github.com/missionctl/missionctl/internal/resource/models"
	"github.com/missionctl/missionctl/internal/resource/store"
)

// defaultWarningThreshold is the usage fraction at which a quota starts warning.
const defaultWarningThreshold = 0.8

// Quotas tracks cumulative usage against opt-in caps per (agent, type) or
// globally, and answers admission-control checks.
type Quotas struct {
	store  store.Store
	bus    bus.EventBus
	logger *logger.Logger

	// mu serializes usage read-then-write updates within this process and
	// makes CheckAndReserve atomic against them.
	mu sync.Mutex
}

// NewQuotas creates a quota tracker service.
func NewQuotas(st store.Store, eventBus bus.EventBus, log *logger.Logger) *Quotas {
	return &Quotas{store: st, bus: eventBus, logger: log}
}

// SetQuotaRequest carries the fields accepted when creating or replacing a quota.
type SetQuotaRequest struct {
	ID               string
	AgentID          string
	Type             string
	Limit            float64
	Period           models.QuotaPeriod
	CurrentUsage     float64
	WarningThreshold *float64
}

// QuotaUsage is a quota plus its derived admission fields.
type QuotaUsage struct {
	*models.Quota
	Percentage float64 `json:"percentage"`
	Warning    bool    `json:"warning"`
	Exceeded   bool    `json:"exceeded"`
}

// QuotaCheck is the answer to an admission-control query.
type QuotaCheck struct {
	Allowed      bool    `json:"allowed"`
	Reason       string  `json:"reason,omitempty"`
	QuotaID      string  `json:"quota_id,omitempty"`
	Limit        float64 `json:"limit,omitempty"`
	CurrentUsage float64 `json:"current_usage"`
	Remaining    float64 `json:"remaining"`
	Percentage   float64 `json:"percentage"`
}

// Get returns quotas visible to an agent: its own plus global ones. With an
// empty agentID, every quota is returned.
func (s *Quotas) Get(ctx context.Context, agentID string) ([]*models.Quota, error) {
	quotas, err := store.ListRecords[models.Quota](ctx, s.store, store.KindQuota)
	if err != nil {
		return nil, apperrors.StorageError("list quotas", err)
	}

	result := make([]*models.Quota, 0, len(quotas))
	for _, q := range quotas {
		if agentID != "" && q.AgentID != agentID && q.AgentID != models.QuotaAgentGlobal {
			continue
		}
		result = append(result, q)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].AgentID != result[j].AgentID {
			return result[i].AgentID < result[j].AgentID
		}
		return result[i].Type < result[j].Type
	})
	return result, nil
}

// Set creates or replaces a quota, applying defaults.
func (s *Quotas) Set(ctx context.Context, req *SetQuotaRequest) (*models.Quota, error) {
	if req.Type == "" {
		return nil, apperrors.ValidationError("type", "quota type is required")
	}

	now := time.Now().UTC()
	quota := &models.Quota{
		ID:               req.ID,
		AgentID:          req.AgentID,
		Type:             req.Type,
		Limit:            req.Limit,
		Period:           req.Period,
		CurrentUsage:     req.CurrentUsage,
		WarningThreshold: defaultWarningThreshold,
		LastReset:        now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if quota.ID == "" {
		quota.ID = uuid.New().String()
	}
	if quota.AgentID == "" {
		quota.AgentID = models.QuotaAgentGlobal
	}
	if quota.Period == "" {
		quota.Period = models.QuotaPeriodMonthly
	}
	if req.WarningThreshold != nil {
		quota.WarningThreshold = *req.WarningThreshold
	}

	if err := store.PutRecord(ctx, s.store, store.KindQuota, quota.ID, quota); err != nil {
		return nil, apperrors.StorageError("set quota", err)
	}

	s.logger.Info("Quota set",
		zap.String("quota_id", quota.ID),
		zap.String("agent_id", quota.AgentID),
		zap.String("type", quota.Type),
		zap.Float64("limit", quota.Limit))
	publishEvent(ctx, s.bus, s.logger, store.KindQuota, "created", quota)
	return quota, nil
}

// RecordUsage adds a delta to a quota's current usage. Deltas may be
// fractional or negative; the domain use is additive-positive.
func (s *Quotas) RecordUsage(ctx context.Context, id string, delta float64) (*QuotaUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quota, err := s.getQuota(ctx, id)
	if err != nil {
		return nil, err
	}

	quota.CurrentUsage += delta
	quota.UpdatedAt = time.Now().UTC()

	if err := store.PutRecord(ctx, s.store, store.KindQuota, quota.ID, quota); err != nil {
		return nil, apperrors.StorageError("update quota usage", err)
	}

	usage := s.usage(quota)
	if usage.Exceeded {
		s.logger.Warn("Quota exceeded",
			zap.String("quota_id", quota.ID),
			zap.String("agent_id", quota.AgentID),
			zap.String("type", quota.Type),
			zap.Float64("current_usage", quota.CurrentUsage),
			zap.Float64("limit", quota.Limit))
	}
	publishEvent(ctx, s.bus, s.logger, store.KindQuota, "updated", usage)
	return usage, nil
}

// Reset zeroes a quota's current usage and stamps last_reset.
func (s *Quotas) Reset(ctx context.Context, id string) (*models.Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quota, err := s.getQuota(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	quota.CurrentUsage = 0
	quota.LastReset = now
	quota.UpdatedAt = now

	if err := store.PutRecord(ctx, s.store, store.KindQuota, quota.ID, quota); err != nil {
		return nil, apperrors.StorageError("reset quota", err)
	}

	s.logger.Info("Quota reset", zap.String("quota_id", id))
	publishEvent(ctx, s.bus, s.logger, store.KindQuota, "updated", quota)
	return quota, nil
}

// Check answers whether an agent may consume amount units of a category.
//
// An agent-specific quota takes precedence over a global one; with no
// matching quota at all the answer is allowed (quotas are opt-in caps,
// absence means unlimited). Check never mutates usage: callers must record
// consumption separately, or use CheckAndReserve to do both in one step.
func (s *Quotas) Check(ctx context.Context, agentID, quotaType string, amount float64) (*QuotaCheck, error) {
	quota, err := s.resolve(ctx, agentID, quotaType)
	if err != nil {
		return nil, err
	}
	return s.evaluate(quota, amount), nil
}

// CheckAndReserve performs Check and, when allowed and a quota matched,
// records the amount against it in the same critical section. This closes
// the check-then-record race for single-process deployments.
func (s *Quotas) CheckAndReserve(ctx context.Context, agentID, quotaType string, amount float64) (*QuotaCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quota, err := s.resolve(ctx, agentID, quotaType)
	if err != nil {
		return nil, err
	}

	check := s.evaluate(quota, amount)
	if !check.Allowed || quota == nil {
		return check, nil
	}

	quota.CurrentUsage += amount
	quota.UpdatedAt = time.Now().UTC()
	if err := store.PutRecord(ctx, s.store, store.KindQuota, quota.ID, quota); err != nil {
		return nil, apperrors.StorageError("reserve quota usage", err)
	}

	check.CurrentUsage = quota.CurrentUsage
	check.Remaining = math.Max(0, quota.Limit-quota.CurrentUsage)
	check.Percentage = percentage(quota.CurrentUsage, quota.Limit)
	publishEvent(ctx, s.bus, s.logger, store.KindQuota, "updated", s.usage(quota))
	return check, nil
}

func (s *Quotas) getQuota(ctx context.Context, id string) (*models.Quota, error) {
	quota, err := store.GetRecord[models.Quota](ctx, s.store, store.KindQuota, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("quota", id)
		}
		return nil, apperrors.StorageError("get quota", err)
	}
	return quota, nil
}

// resolve finds the quota governing (agentID, quotaType): the agent-specific
// quota if one exists, else the global one, else nil.
func (s *Quotas) resolve(ctx context.Context, agentID, quotaType string) (*models.Quota, error) {
	quotas, err := store.ListRecords[models.Quota](ctx, s.store, store.KindQuota)
	if err != nil {
		return nil, apperrors.StorageError("list quotas", err)
	}

	var global *models.Quota
	for _, q := range quotas {
		if q.Type != quotaType {
			continue
		}
		if q.AgentID == agentID {
			return q, nil
		}
		if q.AgentID == models.QuotaAgentGlobal {
			global = q
		}
	}
	return global, nil
}

func (s *Quotas) evaluate(quota *models.Quota, amount float64) *QuotaCheck {
	if quota == nil {
		return &QuotaCheck{Allowed: true, Reason: "No quota defined"}
	}

	projected := quota.CurrentUsage + amount
	check := &QuotaCheck{
		Allowed:      projected <= quota.Limit,
		QuotaID:      quota.ID,
		Limit:        quota.Limit,
		CurrentUsage: quota.CurrentUsage,
		Remaining:    math.Max(0, quota.Limit-quota.CurrentUsage),
		Percentage:   percentage(quota.CurrentUsage, quota.Limit),
	}
	if !check.Allowed {
		check.Reason = fmt.Sprintf("quota '%s' would be exceeded: %.2f + %.2f > %.2f",
			quota.ID, quota.CurrentUsage, amount, quota.Limit)
	}
	return check
}

func (s *Quotas) usage(quota *models.Quota) *QuotaUsage {
	return &QuotaUsage{
		Quota:      quota,
		Percentage: percentage(quota.CurrentUsage, quota.Limit),
		Warning:    quota.Limit > 0 && quota.CurrentUsage/quota.Limit >= quota.WarningThreshold,
		Exceeded:   quota.CurrentUsage >= quota.Limit,
	}
}

func percentage(usage, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Round(usage / limit * 100)
}
