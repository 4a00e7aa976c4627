package service

import (
	"context"
	"errors"
	"fmt"
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

// Bookings allocates time intervals on catalog resources and detects overlap
// conflicts. It reads resources through the catalog but never writes them.
type Bookings struct {
	store   store.Store
	catalog *Catalog
	bus     bus.EventBus
	logger  *logger.Logger

	// mu serializes the read-then-write conflict check within this process.
	// Multi-writer deployments need serialization at the storage layer.
	mu sync.Mutex
}

// NewBookings creates a booking ledger service.
func NewBookings(st store.Store, catalog *Catalog, eventBus bus.EventBus, log *logger.Logger) *Bookings {
	return &Bookings{store: st, catalog: catalog, bus: eventBus, logger: log}
}

// BookingFilter narrows List results. Date bounds are inclusive and compare
// against booking start times.
type BookingFilter struct {
	ResourceID string
	AgentID    string
	Status     string
	From       *time.Time
	To         *time.Time
}

// BookRequest carries the fields accepted when creating a booking.
type BookRequest struct {
	ResourceID string
	AgentID    string
	Purpose    string
	StartTime  time.Time
	EndTime    time.Time
}

// List returns all bookings matching the filter, sorted by start time ascending.
func (s *Bookings) List(ctx context.Context, filter BookingFilter) ([]*models.Booking, error) {
	bookings, err := store.ListRecords[models.Booking](ctx, s.store, store.KindBooking)
	if err != nil {
		return nil, apperrors.StorageError("list bookings", err)
	}

	result := make([]*models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if filter.ResourceID != "" && b.ResourceID != filter.ResourceID {
			continue
		}
		if filter.AgentID != "" && b.AgentID != filter.AgentID {
			continue
		}
		if filter.Status != "" && string(b.Status) != filter.Status {
			continue
		}
		if filter.From != nil && b.StartTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && b.StartTime.After(*filter.To) {
			continue
		}
		result = append(result, b)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

// Get returns a booking by id.
func (s *Bookings) Get(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := store.GetRecord[models.Booking](ctx, s.store, store.KindBooking, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("booking", id)
		}
		return nil, apperrors.StorageError("get booking", err)
	}
	return booking, nil
}

// Book reserves [StartTime, EndTime) on a resource for an agent.
//
// The resource must exist and be bookable, and the interval must not overlap
// any active booking on the same resource. Intervals are half-open: a booking
// starting exactly when another ends is allowed. Nothing is persisted until
// every check has passed.
func (s *Bookings) Book(ctx context.Context, req *BookRequest) (*models.Booking, error) {
	if req.ResourceID == "" {
		return nil, apperrors.ValidationError("resource_id", "resource_id is required")
	}
	if req.AgentID == "" {
		return nil, apperrors.ValidationError("agent_id", "agent_id is required")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, apperrors.ValidationError("end_time", "end_time must be after start_time")
	}

	resource, err := s.catalog.Get(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if !resource.Bookable {
		return nil, apperrors.ValidationError("resource_id",
			fmt.Sprintf("resource '%s' is not bookable", resource.ID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.List(ctx, BookingFilter{
		ResourceID: req.ResourceID,
		Status:     string(models.BookingStatusActive),
	})
	if err != nil {
		return nil, err
	}
	for _, b := range existing {
		if b.Overlaps(req.StartTime, req.EndTime) {
			return nil, apperrors.Conflict(fmt.Sprintf(
				"booking conflicts with booking '%s' (%s to %s) on resource '%s'",
				b.ID,
				b.StartTime.Format(time.RFC3339),
				b.EndTime.Format(time.RFC3339),
				req.ResourceID))
		}
	}

	booking := &models.Booking{
		ID:           uuid.New().String(),
		ResourceID:   req.ResourceID,
		ResourceName: resource.Name,
		AgentID:      req.AgentID,
		Purpose:      req.Purpose,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Status:       models.BookingStatusActive,
		CreatedAt:    time.Now().UTC(),
	}

	if err := store.PutRecord(ctx, s.store, store.KindBooking, booking.ID, booking); err != nil {
		return nil, apperrors.StorageError("create booking", err)
	}

	s.logger.Info("Booking created",
		zap.String("booking_id", booking.ID),
		zap.String("resource_id", booking.ResourceID),
		zap.String("agent_id", booking.AgentID))
	publishEvent(ctx, s.bus, s.logger, store.KindBooking, "created", booking)
	return booking, nil
}

// Cancel marks a booking cancelled. Cancelling an already-cancelled booking
// is a no-op that returns the record unchanged, keeping the original
// cancelled_at.
func (s *Bookings) Cancel(ctx context.Context, id string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.BookingStatusCancelled {
		return booking, nil
	}

	now := time.Now().UTC()
	booking.Status = models.BookingStatusCancelled
	booking.CancelledAt = &now

	if err := store.PutRecord(ctx, s.store, store.KindBooking, booking.ID, booking); err != nil {
		return nil, apperrors.StorageError("cancel booking", err)
	}

	s.logger.Info("Booking cancelled", zap.String("booking_id", id))
	publishEvent(ctx, s.bus, s.logger, store.KindBooking, "cancelled", booking)
	return booking, nil
}
