package api

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/missionctl/missionctl/internal/common/errors"
	"github.com/missionctl/missionctl/internal/common/logger"
	"github.com/missionctl/missionctl/internal/resource/models"
	"github.com/missionctl/missionctl/internal/resource/service"
)

// Handler contains HTTP handlers for the resource manager API
type Handler struct {
	catalog     *service.Catalog
	credentials *service.Credentials
	bookings    *service.Bookings
	costs       *service.Costs
	quotas      *service.Quotas
	metrics     *service.Metrics
	logger      *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(catalog *service.Catalog, credentials *service.Credentials, bookings *service.Bookings,
	costs *service.Costs, quotas *service.Quotas, metrics *service.Metrics, log *logger.Logger) *Handler {
	return &Handler{
		catalog:     catalog,
		credentials: credentials,
		bookings:    bookings,
		costs:       costs,
		quotas:      quotas,
		metrics:     metrics,
		logger:      log,
	}
}

// respondError maps a service error to an HTTP response. Unknown errors
// become 500s; everything carries the AppError code and message.
func (h *Handler) respondError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.InternalError("internal server error", err)
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	c.JSON(appErr.HTTPStatus, appErr)
}

// Resource endpoints

// ListResources returns resources matching the query filters
// GET /api/v1/resources?type=&status=&owner=
func (h *Handler) ListResources(c *gin.Context) {
	filter := service.ResourceFilter{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Owner:  c.Query("owner"),
	}

	resources, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ResourcesListResponse{Resources: resources, Total: len(resources)})
}

// GetResource retrieves a resource by ID
// GET /api/v1/resources/:resourceId
func (h *Handler) GetResource(c *gin.Context) {
	resource, err := h.catalog.Get(c.Request.Context(), c.Param("resourceId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resource)
}

// CreateResource declares a new resource
// POST /api/v1/resources
func (h *Handler) CreateResource(c *gin.Context) {
	var req CreateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.BadRequest(err.Error()))
		return
	}

	resource, err := h.catalog.Create(c.Request.Context(), &service.CreateResourceRequest{
		ID:               req.ID,
		Name:             req.Name,
		Type:             models.ResourceType(req.Type),
		Status:           models.ResourceStatus(req.Status),
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
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resource)
}

// UpdateResource applies an allow-list patch to a resource
// PUT /api/v1/resources/:resourceId
func (h *Handler) UpdateResource(c *gin.Context) {
	var req UpdateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.BadRequest(err.Error()))
		return
	}

	svcReq := &service.UpdateResourceRequest{
		Name:             req.Name,
		Description:      req.Description,
		Config:           req.Config,
		Endpoint:         req.Endpoint,
		DocumentationURL: req.DocumentationURL,
		Owner:            req.Owner,
		SharedWith:       req.SharedWith,
		Capacity:         req.Capacity,
		Bookable:         req.Bookable,
		CostPerUnit:      req.CostPerUnit,
		CostUnit:         req.CostUnit,
		MonthlyBudget:    req.MonthlyBudget,
		Tags:             req.Tags,
	}
	if req.Type != nil {
		t := models.ResourceType(*req.Type)
		svcReq.Type = &t
	}
	if req.Status != nil {
		s := models.ResourceStatus(*req.Status)
		svcReq.Status = &s
	}

	resource, err := h.catalog.Update(c.Request.Context(), c.Param("resourceId"), svcReq)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resource)
}

// DeleteResource removes a resource
// DELETE /api/v1/resources/:resourceId
func (h *Handler) DeleteResource(c *gin.Context) {
	id := c.Param("resourceId")
	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeletedResponse{ID: id, Deleted: true})
}

// GetMetrics returns the aggregate metrics snapshot
// GET /api/v1/resources/metrics
func (h *Handler) GetMetrics(c *gin.Context) {
	snapshot, err := h.metrics.Collect(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Credential endpoints

// ListCredentials returns all credentials with secret values stripped
// GET /api/v1/credentials
func (h *Handler) ListCredentials(c *gin.Context) {
	credentials, err := h.credentials.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CredentialsListResponse{Credentials: credentials, Total: len(credentials)})
}

// GetCredential retrieves a credential by ID
// GET /api/v1/credentials/:credentialId?includeValue=
func (h *Handler) GetCredential(c *gin.Context) {
	includeValue := c.Query("includeValue") == "true"
	credential, err := h.credentials.Get(c.Request.Context(), c.Param("credentialId"), includeValue)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, credential)
}

// CreateCredential stores a new credential
// POST /api/v1/credentials
func (h *Handler) CreateCredential(c *gin.Context) {
	var req CreateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.BadRequest(err.Error()))
		return
	}

	credential, err := h.credentials.Create(c.Request.Context(), &service.CreateCredentialRequest{
		Name:        req.Name,
		Type:        models.CredentialType(req.Type),
		Service:     req.Service,
		Description: req.Description,
		Value:       req.Value,
		Owner:       req.Owner,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, credential)
}

// DeleteCredential removes a credential
// DELETE /api/v1/credentials/:credentialId
func (h *Handler) DeleteCredential(c *gin.Context) {
	id := c.Param("credentialId")
	if err := h.credentials.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeletedResponse{ID: id, Deleted: true})
}

// Booking endpoints

// ListBookings returns bookings matching the query filters
// GET /api/v1/bookings?resource_id=&agent_id=&status=&from_date=&to_date=
func (h *Handler) ListBookings(c *gin.Context) {
	filter := service.BookingFilter{
		ResourceID: c.Query("resource_id"),
		AgentID:    c.Query("agent_id"),
		Status:     c.Query("status"),
	}

	if from := c.Query("from_date"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			h.respondError(c, errors.ValidationError("from_date", "must be an RFC3339 timestamp"))
			return
		}
		filter.From = &t
	}
	if to := c.Query("to_date"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			h.respondError(c, errors.ValidationError("to_date", "must be an RFC3339 timestamp"))
			return
		}
		filter.To = &t
	}

	bookings, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, BookingsListResponse{Bookings: bookings, Total: len(bookings)})
}

// CreateBooking reserves a time interval on a resource
// POST /api/v1/bookings
func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.BadRequest(err.Error()))
		return
	}

	booking, err := h.bookings.Book(c.Request.Context(), &service.BookRequest{
		ResourceID: req.ResourceID,
		AgentID:    req.AgentID,
		Purpose:    req.Purpose,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// CancelBooking marks a booking cancelled
// DELETE /api/v1/bookings/:bookingId
func (h *Handler) CancelBooking(c *gin.Context) {
	booking, err := h.bookings.Cancel(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// Cost endpoints

// SummarizeCosts returns the filtered spend summary
// GET /api/v1/costs?agent_id=&type=&resource_id=&from_date=&to_date=
func (h *Handler) SummarizeCosts(c *gin.Context) {
	filter := service.CostFilter{
		AgentID:    c.Query("agent_id"),
		Type:       c.Query("type"),
		ResourceID: c.Query("resource_id"),
	}

	if from := c.Query("from_date"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			h.respondError(c, errors.ValidationError("from_date", "must be an RFC3339 timestamp"))
			return
		}
		filter.From = &t
	}
	if to := c.Query("to_date"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			h.respondError(c, errors.ValidationError("to_date", "must be an RFC3339 timestamp"))
			return
		}
		filter.To = &t
	}

	summary, err := h.costs.Summarize(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// RecordCost appends a spend event
// POST /api/v1/costs
func (h *Handler) RecordCost(c *gin.Context) {
	var req RecordCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.BadRequest(err.Error()))
		return
	}

	cost, err := h.costs.Record(c.Request.Context(), &service.RecordCostRequest{
		AgentID:     req.AgentID,
		Type:        req.Type,
		ResourceID:  req.ResourceID,
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, cost)
}

// Quota endpoints

// ListQuotas returns quotas, optionally scoped to an agent (plus global ones)
// GET /api/v1/quotas?agent_id=
func (h *Handler) ListQuotas(c *gin.Context) {
	quotas, err := h.quotas.Get(c.Request.Context(), c.Query("agent_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, QuotasListResponse{Quotas: quotas, Total: len(quotas)})
}

// SetQuota creates or replaces a quota
// POST /api/v1/quotas
func (h *Handler) SetQuota(c *gin.Context) {
	var req SetQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.BadRequest(err.Error()))
		return
	}

	quota, err := h.quotas.Set(c.Request.Context(), &service.SetQuotaRequest{
		ID:               req.ID,
		AgentID:          req.AgentID,
		Type:             req.Type,
		Limit:            req.Limit,
		Period:           models.QuotaPeriod(req.Period),
		CurrentUsage:     req.CurrentUsage,
		WarningThreshold: req.WarningThreshold,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quota)
}

// RecordQuotaUsage adds a delta to a quota's usage
// PUT /api/v1/quotas/:quotaId/usage
func (h *Handler) RecordQuotaUsage(c *gin.Context) {
	var req RecordQuotaUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.BadRequest(err.Error()))
		return
	}

	usage, err := h.quotas.RecordUsage(c.Request.Context(), c.Param("quotaId"), req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, usage)
}

// ResetQuota zeroes a quota's usage
// POST /api/v1/quotas/:quotaId/reset
func (h *Handler) ResetQuota(c *gin.Context) {
	quota, err := h.quotas.Reset(c.Request.Context(), c.Param("quotaId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quota)
}

// CheckQuota answers an admission-control query without mutating usage
// GET /api/v1/quotas/check?agent_id=&type=&amount=
func (h *Handler) CheckQuota(c *gin.Context) {
	agentID := c.Query("agent_id")
	quotaType := c.Query("type")
	if agentID == "" {
		h.respondError(c, errors.ValidationError("agent_id", "agent_id is required"))
		return
	}
	if quotaType == "" {
		h.respondError(c, errors.ValidationError("type", "type is required"))
		return
	}

	amount := 1.0
	if raw := c.Query("amount"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.respondError(c, errors.ValidationError("amount", "must be a number"))
			return
		}
		amount = parsed
	}

	check, err := h.quotas.Check(c.Request.Context(), agentID, quotaType, amount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, check)
}

// ReserveQuota performs the combined check-and-reserve operation
// POST /api/v1/quotas/reserve
func (h *Handler) ReserveQuota(c *gin.Context) {
	var req ReserveQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.BadRequest(err.Error()))
		return
	}

	amount := req.Amount
	if amount == 0 {
		amount = 1
	}

	check, err := h.quotas.CheckAndReserve(c.Request.Context(), req.AgentID, req.Type, amount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, check)
}

// HealthCheck reports service liveness
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}
