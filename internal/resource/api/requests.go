// Package api provides HTTP handlers for the resource manager API.
package api

import (
	"time"

	"github.com/missionctl/missionctl/internal/resource/models"
)

// CreateResourceRequest for declaring a resource
type CreateResourceRequest struct {
	ID               string                 `json:"id,omitempty"`
	Name             string                 `json:"name"`
	Type             string                 `json:"type"`
	Status           string                 `json:"status"`
	Description      string                 `json:"description"`
	Config           map[string]interface{} `json:"config,omitempty"`
	Endpoint         string                 `json:"endpoint,omitempty"`
	DocumentationURL string                 `json:"documentation_url,omitempty"`
	Bookable         bool                   `json:"bookable"`
	Capacity         map[string]interface{} `json:"capacity,omitempty"`
	CostPerUnit      float64                `json:"cost_per_unit,omitempty"`
	CostUnit         string                 `json:"cost_unit,omitempty"`
	MonthlyBudget    float64                `json:"monthly_budget,omitempty"`
	Owner            string                 `json:"owner,omitempty"`
	SharedWith       []string               `json:"shared_with,omitempty"`
	Tags             []string               `json:"tags,omitempty"`
}

// UpdateResourceRequest for patching a resource; only listed fields are mutable
type UpdateResourceRequest struct {
	Name             *string                `json:"name,omitempty"`
	Type             *string                `json:"type,omitempty"`
	Status           *string                `json:"status,omitempty"`
	Description      *string                `json:"description,omitempty"`
	Config           map[string]interface{} `json:"config,omitempty"`
	Endpoint         *string                `json:"endpoint,omitempty"`
	DocumentationURL *string                `json:"documentation_url,omitempty"`
	Owner            *string                `json:"owner,omitempty"`
	SharedWith       []string               `json:"shared_with,omitempty"`
	Capacity         map[string]interface{} `json:"capacity,omitempty"`
	Bookable         *bool                  `json:"bookable,omitempty"`
	CostPerUnit      *float64               `json:"cost_per_unit,omitempty"`
	CostUnit         *string                `json:"cost_unit,omitempty"`
	MonthlyBudget    *float64               `json:"monthly_budget,omitempty"`
	Tags             []string               `json:"tags,omitempty"`
}

// CreateCredentialRequest for storing a credential
type CreateCredentialRequest struct {
	Name        string `json:"name" binding:"required"`
	Type        string `json:"type"`
	Service     string `json:"service,omitempty"`
	Description string `json:"description,omitempty"`
	Value       string `json:"value,omitempty"`
	Owner       string `json:"owner,omitempty"`
}

// CreateBookingRequest for reserving a time interval on a resource
type CreateBookingRequest struct {
	ResourceID string    `json:"resource_id" binding:"required"`
	AgentID    string    `json:"agent_id" binding:"required"`
	Purpose    string    `json:"purpose,omitempty"`
	StartTime  time.Time `json:"start_time" binding:"required"`
	EndTime    time.Time `json:"end_time" binding:"required"`
}

// RecordCostRequest for appending a spend event
type RecordCostRequest struct {
	AgentID     string     `json:"agent_id,omitempty"`
	Type        string     `json:"type" binding:"required"`
	ResourceID  string     `json:"resource_id,omitempty"`
	Description string     `json:"description,omitempty"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// SetQuotaRequest for creating or replacing a quota
type SetQuotaRequest struct {
	ID               string   `json:"id,omitempty"`
	AgentID          string   `json:"agent_id,omitempty"`
	Type             string   `json:"type" binding:"required"`
	Limit            float64  `json:"limit"`
	Period           string   `json:"period,omitempty"`
	CurrentUsage     float64  `json:"current_usage,omitempty"`
	WarningThreshold *float64 `json:"warning_threshold,omitempty"`
}

// RecordQuotaUsageRequest for adding a delta to a quota's usage
type RecordQuotaUsageRequest struct {
	Amount float64 `json:"amount"`
}

// ReserveQuotaRequest for the combined check-and-reserve operation
type ReserveQuotaRequest struct {
	AgentID string  `json:"agent_id" binding:"required"`
	Type    string  `json:"type" binding:"required"`
	Amount  float64 `json:"amount"`
}

// Response types

// ResourcesListResponse for listing resources
type ResourcesListResponse struct {
	Resources []*models.Resource `json:"resources"`
	Total     int                `json:"total"`
}

// CredentialsListResponse for listing credentials
type CredentialsListResponse struct {
	Credentials []*models.Credential `json:"credentials"`
	Total       int                  `json:"total"`
}

// BookingsListResponse for listing bookings
type BookingsListResponse struct {
	Bookings []*models.Booking `json:"bookings"`
	Total    int               `json:"total"`
}

// QuotasListResponse for listing quotas
type QuotasListResponse struct {
	Quotas []*models.Quota `json:"quotas"`
	Total  int             `json:"total"`
}

// DeletedResponse acknowledges a delete
type DeletedResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
