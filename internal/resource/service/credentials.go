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

// Credentials manages opaque secret references. Values are stored as given
// (encryption is a future hardening pass) and are stripped from every
// response unless the caller explicitly asks for the value.
type Credentials struct {
	store  store.Store
	bus    bus.EventBus
	logger *logger.Logger
}

// NewCredentials creates a credential store service.
func NewCredentials(st store.Store, eventBus bus.EventBus, log *logger.Logger) *Credentials {
	return &Credentials{store: st, bus: eventBus, logger: log}
}

// CreateCredentialRequest carries the fields accepted when storing a credential.
type CreateCredentialRequest struct {
	Name        string
	Type        models.CredentialType
	Service     string
	Description string
	Value       string
	Owner       string
}

// List returns all credentials with secret values stripped, sorted by name.
func (s *Credentials) List(ctx context.Context) ([]*models.Credential, error) {
	credentials, err := store.ListRecords[models.Credential](ctx, s.store, store.KindCredential)
	if err != nil {
		return nil, apperrors.StorageError("list credentials", err)
	}

	result := make([]*models.Credential, 0, len(credentials))
	for _, c := range credentials {
		result = append(result, c.Redacted())
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result, nil
}

// Get returns a credential by id. The secret value is included only when
// includeValue is true.
func (s *Credentials) Get(ctx context.Context, id string, includeValue bool) (*models.Credential, error) {
	credential, err := store.GetRecord[models.Credential](ctx, s.store, store.KindCredential, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("credential", id)
		}
		return nil, apperrors.StorageError("get credential", err)
	}

	if !includeValue {
		return credential.Redacted(), nil
	}
	credential.HasValue = credential.Value != ""
	return credential, nil
}

// Create stores a new credential and returns it with the value stripped.
func (s *Credentials) Create(ctx context.Context, req *CreateCredentialRequest) (*models.Credential, error) {
	if req.Name == "" {
		return nil, apperrors.ValidationError("name", "credential name is required")
	}

	now := time.Now().UTC()
	credential := &models.Credential{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Type:        req.Type,
		Service:     req.Service,
		Description: req.Description,
		Value:       req.Value,
		Owner:       req.Owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if credential.Owner == "" {
		credential.Owner = "system"
	}

	if err := store.PutRecord(ctx, s.store, store.KindCredential, credential.ID, credential); err != nil {
		return nil, apperrors.StorageError("create credential", err)
	}

	s.logger.Info("Credential created",
		zap.String("credential_id", credential.ID),
		zap.String("name", credential.Name))
	// The event payload is redacted too; secrets never cross the bus.
	publishEvent(ctx, s.bus, s.logger, store.KindCredential, "created", credential.Redacted())
	return credential.Redacted(), nil
}

// Delete removes a credential. There is no update; replace by delete+create.
func (s *Credentials) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, store.KindCredential, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("credential", id)
		}
		return apperrors.StorageError("delete credential", err)
	}

	s.logger.Info("Credential deleted", zap.String("credential_id", id))
	publishEvent(ctx, s.bus, s.logger, store.KindCredential, "deleted", map[string]string{"id": id})
	return nil
}
