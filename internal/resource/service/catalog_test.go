package service

import (
	"context"
	"testing"

	"github.com/missionctl/missionctl/internal/common/errors"
	"github.com/missionctl/missionctl/internal/resource/models"
)

func TestCatalog_Create_Defaults(t *testing.T) {
	catalog, _, _, _, _ := setupServices(t)

	resource, err := catalog.Create(context.Background(), &CreateResourceRequest{Name: "thing"})
	if err != nil {
		t.Fatalf("create should succeed: %v", err)
	}
	if resource.ID == "" {
		t.Error("create should assign an id")
	}
	if resource.Type != models.ResourceTypeOther {
		t.Errorf("expected default type other, got %s", resource.Type)
	}
	if resource.Status != models.ResourceStatusActive {
		t.Errorf("expected default status active, got %s", resource.Status)
	}
	if resource.Bookable {
		t.Error("expected bookable to default to false")
	}
	if resource.Tags == nil {
		t.Error("expected tags to default to an empty slice")
	}
	if resource.CreatedAt.IsZero() || resource.UpdatedAt.IsZero() {
		t.Error("create should stamp created_at and updated_at")
	}
}

func TestCatalog_List_FilterAndSort(t *testing.T) {
	catalog, _, _, _, _ := setupServices(t)
	ctx := context.Background()

	for _, req := range []*CreateResourceRequest{
		{Name: "zeta", Type: models.ResourceTypeAPI, Owner: "morpheus"},
		{Name: "Alpha", Type: models.ResourceTypeCompute, Owner: "morpheus"},
		{Name: "beta", Type: models.ResourceTypeAPI, Owner: "niobe"},
	} {
		if _, err := catalog.Create(ctx, req); err != nil {
			t.Fatalf("create should succeed: %v", err)
		}
	}

	all, err := catalog.List(ctx, ResourceFilter{})
	if err != nil {
		t.Fatalf("list should succeed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 resources, got %d", len(all))
	}
	// Case-insensitive ascending by name.
	if all[0].Name != "Alpha" || all[1].Name != "beta" || all[2].Name != "zeta" {
		t.Errorf("unexpected sort order: %s, %s, %s", all[0].Name, all[1].Name, all[2].Name)
	}

	apis, err := catalog.List(ctx, ResourceFilter{Type: "api"})
	if err != nil {
		t.Fatalf("list should succeed: %v", err)
	}
	if len(apis) != 2 {
		t.Errorf("expected 2 api resources, got %d", len(apis))
	}

	owned, err := catalog.List(ctx, ResourceFilter{Type: "api", Owner: "niobe"})
	if err != nil {
		t.Fatalf("list should succeed: %v", err)
	}
	if len(owned) != 1 || owned[0].Name != "beta" {
		t.Errorf("expected only beta, got %d results", len(owned))
	}
}

func TestCatalog_Update_AllowList(t *testing.T) {
	catalog, _, _, _, _ := setupServices(t)
	ctx := context.Background()

	resource, err := catalog.Create(ctx, &CreateResourceRequest{Name: "old", Bookable: false})
	if err != nil {
		t.Fatalf("create should succeed: %v", err)
	}

	name := "new"
	bookable := true
	status := models.ResourceStatusMaintenance
	updated, err := catalog.Update(ctx, resource.ID, &UpdateResourceRequest{
		Name:     &name,
		Bookable: &bookable,
		Status:   &status,
	})
	if err != nil {
		t.Fatalf("update should succeed: %v", err)
	}
	if updated.Name != "new" || !updated.Bookable || updated.Status != models.ResourceStatusMaintenance {
		t.Errorf("patch not applied: %+v", updated)
	}
	if !updated.UpdatedAt.After(resource.UpdatedAt) && !updated.UpdatedAt.Equal(resource.UpdatedAt) {
		t.Error("updated_at should be refreshed")
	}
	// Unpatched fields are untouched.
	if updated.Type != resource.Type || !updated.CreatedAt.Equal(resource.CreatedAt) {
		t.Error("update must not change fields outside the patch")
	}
}

func TestCatalog_Update_NotFound(t *testing.T) {
	catalog, _, _, _, _ := setupServices(t)

	name := "x"
	_, err := catalog.Update(context.Background(), "missing", &UpdateResourceRequest{Name: &name})
	if !errors.IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCatalog_Delete(t *testing.T) {
	catalog, _, _, _, _ := setupServices(t)
	ctx := context.Background()

	resource, err := catalog.Create(ctx, &CreateResourceRequest{Name: "doomed"})
	if err != nil {
		t.Fatalf("create should succeed: %v", err)
	}
	if err := catalog.Delete(ctx, resource.ID); err != nil {
		t.Fatalf("delete should succeed: %v", err)
	}
	if _, err := catalog.Get(ctx, resource.ID); !errors.IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := catalog.Delete(ctx, resource.ID); !errors.IsNotFound(err) {
		t.Fatalf("expected not found on double delete, got %v", err)
	}
}

func TestCatalog_Delete_KeepsBookings(t *testing.T) {
	catalog, bookings, _, _, _ := setupServices(t)
	ctx := context.Background()

	resource := mustCreateResource(t, catalog, "GPU-A", true)
	booking, err := bookings.Book(ctx, &BookRequest{
		ResourceID: resource.ID,
		AgentID:    "neo",
		StartTime:  resource.CreatedAt,
		EndTime:    resource.CreatedAt.Add(1),
	})
	if err != nil {
		t.Fatalf("booking should succeed: %v", err)
	}

	if err := catalog.Delete(ctx, resource.ID); err != nil {
		t.Fatalf("delete should succeed: %v", err)
	}

	// No cascading delete; the orphaned booking is tolerated.
	remaining, err := bookings.List(ctx, BookingFilter{})
	if err != nil {
		t.Fatalf("list should succeed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != booking.ID {
		t.Errorf("expected orphaned booking to remain, got %d", len(remaining))
	}
}
