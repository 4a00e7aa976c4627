// Package models defines the persisted record types managed by the resource manager.
package models

import "time"

// ResourceType categorizes a bookable/usable resource.
type ResourceType string

const (
	ResourceTypeAPI     ResourceType = "api"
	ResourceTypeCompute ResourceType = "compute"
	ResourceTypeService ResourceType = "service"
	ResourceTypeTool    ResourceType = "tool"
	ResourceTypeOther   ResourceType = "other"
)

// ResourceStatus is the lifecycle state of a resource.
type ResourceStatus string

const (
	ResourceStatusActive      ResourceStatus = "active"
	ResourceStatusInactive    ResourceStatus = "inactive"
	ResourceStatusMaintenance ResourceStatus = "maintenance"
	ResourceStatusDeprecated  ResourceStatus = "deprecated"
)

// Resource is a declaration of something agents can book or spend against:
// an API, a compute node, a shared service, a tool.
type Resource struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	Type             ResourceType           `json:"type"`
	Status           ResourceStatus         `json:"status"`
	Description      string                 `json:"description,omitempty"`
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
	Tags             []string               `json:"tags"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking reserves a time interval on a resource for an agent. Intervals are
// half-open [StartTime, EndTime): a booking starting exactly when another
// ends does not overlap it.
type Booking struct {
	ID         string `json:"id"`
	ResourceID string `json:"resource_id"`
	// ResourceName is a snapshot taken at booking time; it is not kept in
	// sync with later resource renames.
	ResourceName string        `json:"resource_name,omitempty"`
	AgentID      string        `json:"agent_id"`
	Purpose      string        `json:"purpose,omitempty"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Status       BookingStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	CancelledAt  *time.Time    `json:"cancelled_at,omitempty"`
}

// Overlaps reports whether the booking's interval strictly overlaps [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return start.Before(b.EndTime) && end.After(b.StartTime)
}

// Cost is one append-only spend event. Records are never updated or deleted.
type Cost struct {
	ID          string    `json:"id"`
	AgentID     string    `json:"agent_id,omitempty"`
	Type        string    `json:"type"`
	ResourceID  string    `json:"resource_id,omitempty"`
	Description string    `json:"description,omitempty"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Timestamp   time.Time `json:"timestamp"`
}

// QuotaAgentGlobal is the sentinel agent id for quotas that apply to every agent.
const QuotaAgentGlobal = "global"

// QuotaPeriod is informational; no automatic reset scheduling happens here.
type QuotaPeriod string

const (
	QuotaPeriodDaily   QuotaPeriod = "daily"
	QuotaPeriodWeekly  QuotaPeriod = "weekly"
	QuotaPeriodMonthly QuotaPeriod = "monthly"
)

// Quota caps cumulative usage of some category for one agent or globally.
// Quotas are opt-in: absence of a quota means unlimited.
type Quota struct {
	ID               string      `json:"id"`
	AgentID          string      `json:"agent_id"`
	Type             string      `json:"type"`
	Limit            float64     `json:"limit"`
	Period           QuotaPeriod `json:"period"`
	CurrentUsage     float64     `json:"current_usage"`
	WarningThreshold float64     `json:"warning_threshold"`
	LastReset        time.Time   `json:"last_reset"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// CredentialType categorizes a stored secret reference.
type CredentialType string

const (
	CredentialTypeAPIKey      CredentialType = "api_key"
	CredentialTypeOAuthToken  CredentialType = "oauth_token"
	CredentialTypePassword    CredentialType = "password"
	CredentialTypeCertificate CredentialType = "certificate"
)

// Credential is an opaque secret reference. Value is stored as given (no
// encryption yet) and must be stripped from every response unless the caller
// explicitly asks for it.
type Credential struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        CredentialType `json:"type"`
	Service     string         `json:"service,omitempty"`
	Description string         `json:"description,omitempty"`
	Value       string         `json:"value,omitempty"`
	HasValue    bool           `json:"has_value"`
	Owner       string         `json:"owner"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Redacted returns a copy safe for list/summary responses: the secret value
// is dropped and HasValue reports whether one is stored.
func (c *Credential) Redacted() *Credential {
	out := *c
	out.HasValue = out.Value != ""
	out.Value = ""
	return &out
}
