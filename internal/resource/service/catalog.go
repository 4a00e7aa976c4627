package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/missionctl/missionctl/internal/common/errors"
	"github.com/missionctl/missionctl/internal/common/logger"
	"github.com/missionctl/missionctl/internal/events/bus"
	"github.com/missionctl/missionctl/internal/resource/models"
	"github.com/missionctl/missionctl/internal/resource/store"
)

// Catalog manages the declarations of bookable/usable resources.
type Catalog struct {
	store  store.Store
	bus    bus.EventBus
	logger *logger.Logger
}

// NewCatalog creates a resource catalog service.
func NewCatalog(st store.Store, eventBus bus.EventBus, log *logger.Logger) *Catalog {
	return &Catalog{store: st, bus: eventBus, logger: log}
}

// ResourceFilter narrows List results. Empty fields match everything.
type ResourceFilter struct {
	Type   string
	Status string
	Owner  string
}

// CreateResourceRequest carries the fields accepted when declaring a resource.
type CreateResourceRequest struct {
	ID               string
	Name             string
	Type             models.ResourceType
	Status           models.ResourceStatus
	Description      string
	Config           map[string]interface{}
	Endpoint         string
	DocumentationURL string
	Bookable         bool
	Capacity         map[string]interface{}
	CostPerUnit      float64
	CostUnit         string
	MonthlyBudget    float64
	Owner            string
	SharedWith       []string
	Tags             []string
}

// UpdateResourceRequest is the allow-list patch for a resource. Only the
// fields enumerated here are mutable; anything else a caller sends is
// ignored by construction.
type UpdateResourceRequest struct {
	Name             *string
	Type             *models.ResourceType
	Status           *models.ResourceStatus
	Description      *string
	Config           map[string]interface{}
	Endpoint         *string
	DocumentationURL *string
	Owner            *string
	SharedWith       []string
	Capacity         map[string]interface{}
	Bookable         *bool
	CostPerUnit      *float64
	CostUnit         *string
	MonthlyBudget    *float64
	Tags             []string
}

// List returns all resources matching the filter, sorted by name
// (case-insensitive ascending). An empty result is not an error.
func (c *Catalog) List(ctx context.Context, filter ResourceFilter) ([]*models.Resource, error) {
	resources, err := store.ListRecords[models.Resource](ctx, c.store, store.KindResource)
	if err != nil {
		return nil, apperrors.StorageError("list resources", err)
	}

	result := make([]*models.Resource, 0, len(resources))
	for _, r := range resources {
		if filter.Type != "" && string(r.Type) != filter.Type {
			continue
		}
		if filter.Status != "" && string(r.Status) != filter.Status {
			continue
		}
		if filter.Owner != "" && r.Owner != filter.Owner {
			continue
		}
		result = append(result, r)
	}

	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result, nil
}

// Get returns a resource by id, or a NotFound error.
func (c *Catalog) Get(ctx context.Context, id string) (*models.Resource, error) {
	resource, err := store.GetRecord[models.Resource](ctx, c.store, store.KindResource, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("resource", id)
		}
		return nil, apperrors.StorageError("get resource", err)
	}
	return resource, nil
}

// Create declares a new resource, applying field defaults and timestamps.
func (c *Catalog) Create(ctx context.Context, req *CreateResourceRequest) (*models.Resource, error) {
	now := time.Now().UTC()
	resource := &models.Resource{
		ID:               req.ID,
		Name:             req.Name,
		Type:             req.Type,
		Status:           req.Status,
		Description:      req.Description,
		Config:           req.Config,
		Endpoint:         req.Endpoint,
		DocumentationURL: req.DocumentationURL,
		Bookable:         req.Bookable,
		Capacity:         req.Capacity,
		CostPerUnit:      req.CostPerUnit,
		CostUnit:         req.CostUnit,
		MonthlyBudget:    req.MonthlyBudget,
		Owner:            req.Owner,
		SharedWith:       req.SharedWith,
		Tags:             req.Tags,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if resource.ID == "" {
		resource.ID = uuid.New().String()
	}
	if resource.Type == "" {
		resource.Type = models.ResourceTypeOther
	}
	if resource.Status == "" {
		resource.Status = models.ResourceStatusActive
	}
	if resource.Tags == nil {
		resource.Tags = []string{}
	}

	if err := store.PutRecord(ctx, c.store, store.KindResource, resource.ID, resource); err != nil {
		return nil, apperrors.StorageError("create resource", err)
	}

	c.logger.Info("Resource created",
		zap.String("resource_id", resource.ID),
		zap.String("name", resource.Name),
		zap.String("type", string(resource.Type)))
	publishEvent(ctx, c.bus, c.logger, store.KindResource, "created", resource)
	return resource, nil
}

// Update applies an allow-list patch to a resource and refreshes updated_at.
func (c *Catalog) Update(ctx context.Context, id string, req *UpdateResourceRequest) (*models.Resource, error) {
	resource, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		resource.Name = *req.Name
	}
	if req.Type != nil {
		resource.Type = *req.Type
	}
	if req.Status != nil {
		resource.Status = *req.Status
	}
	if req.Description != nil {
		resource.Description = *req.Description
	}
	if req.Config != nil {
		resource.Config = req.Config
	}
	if req.Endpoint != nil {
		resource.Endpoint = *req.Endpoint
	}
	if req.DocumentationURL != nil {
		resource.DocumentationURL = *req.DocumentationURL
	}
	if req.Owner != nil {
		resource.Owner = *req.Owner
	}
	if req.SharedWith != nil {
		resource.SharedWith = req.SharedWith
	}
	if req.Capacity != nil {
		resource.Capacity = req.Capacity
	}
	if req.Bookable != nil {
		resource.Bookable = *req.Bookable
	}
	if req.CostPerUnit != nil {
		resource.CostPerUnit = *req.CostPerUnit
	}
	if req.CostUnit != nil {
		resource.CostUnit = *req.CostUnit
	}
	if req.MonthlyBudget != nil {
		resource.MonthlyBudget = *req.MonthlyBudget
	}
	if req.Tags != nil {
		resource.Tags = req.Tags
	}
	resource.UpdatedAt = time.Now().UTC()

	if err := store.PutRecord(ctx, c.store, store.KindResource, resource.ID, resource); err != nil {
		return nil, apperrors.StorageError("update resource", err)
	}

	publishEvent(ctx, c.bus, c.logger, store.KindResource, "updated", resource)
	return resource, nil
}

// Delete removes a resource. Bookings and costs referencing it are left in
// place; orphaned references are tolerated.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, store.KindResource, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("resource", id)
		}
		return apperrors.StorageError("delete resource", err)
	}

	c.logger.Info("Resource deleted", zap.String("resource_id", id))
	publishEvent(ctx, c.bus, c.logger, store.KindResource, "deleted", map[string]string{"id": id})
	return nil
}
