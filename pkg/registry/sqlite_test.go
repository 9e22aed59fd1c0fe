package registry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(""); err == nil {
		t.Fatal("expected error for empty db path")
	}
}

func TestSQLiteStoreEndpoints(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	if err := store.PutEndpoint(ctx, Endpoint{}); err == nil {
		t.Fatal("expected error for empty endpoint id")
	}

	if err := store.PutEndpoint(ctx, Endpoint{ID: "e1", ServiceID: "compute", RegionID: "r1"}); err != nil {
		t.Fatalf("PutEndpoint failed: %v", err)
	}

	endpoint, err := store.GetEndpoint(ctx, "e1")
	if err != nil {
		t.Fatalf("GetEndpoint failed: %v", err)
	}
	if endpoint.ServiceID != "compute" || endpoint.RegionID != "r1" {
		t.Fatalf("unexpected endpoint %+v", endpoint)
	}

	// Upsert replaces.
	if err := store.PutEndpoint(ctx, Endpoint{ID: "e1", ServiceID: "storage", RegionID: "r2"}); err != nil {
		t.Fatalf("PutEndpoint failed: %v", err)
	}
	endpoint, _ = store.GetEndpoint(ctx, "e1")
	if endpoint.ServiceID != "storage" || endpoint.RegionID != "r2" {
		t.Fatalf("expected replaced endpoint, got %+v", endpoint)
	}

	_, err = store.GetEndpoint(ctx, "missing")
	if !errors.Is(err, ErrEndpointNotFound) {
		t.Fatalf("expected ErrEndpointNotFound, got %v", err)
	}
}

func TestSQLiteStoreRegisteredLimits(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, limit := range []RegisteredLimit{
		{ResourceName: "ram_mb", DefaultLimit: 4096},
		{ResourceName: "cores", DefaultLimit: 10},
	} {
		if err := store.PutRegisteredLimit(ctx, "compute", "r1", limit); err != nil {
			t.Fatalf("PutRegisteredLimit failed: %v", err)
		}
	}
	if err := store.PutRegisteredLimit(ctx, "storage", "r1", RegisteredLimit{ResourceName: "volumes", DefaultLimit: 5}); err != nil {
		t.Fatalf("PutRegisteredLimit failed: %v", err)
	}

	// Full scope listing comes back ordered by resource name.
	limits, err := store.ListRegisteredLimits(ctx, "compute", "r1", "")
	if err != nil {
		t.Fatalf("ListRegisteredLimits failed: %v", err)
	}
	if len(limits) != 2 || limits[0].ResourceName != "cores" || limits[1].ResourceName != "ram_mb" {
		t.Fatalf("unexpected limits %+v", limits)
	}

	// Single-resource lookup.
	limits, err = store.ListRegisteredLimits(ctx, "compute", "r1", "cores")
	if err != nil {
		t.Fatalf("ListRegisteredLimits failed: %v", err)
	}
	if len(limits) != 1 || limits[0].DefaultLimit != 10 {
		t.Fatalf("unexpected limits %+v", limits)
	}

	// Upsert replaces the default.
	if err := store.PutRegisteredLimit(ctx, "compute", "r1", RegisteredLimit{ResourceName: "cores", DefaultLimit: 20}); err != nil {
		t.Fatalf("PutRegisteredLimit failed: %v", err)
	}
	limits, _ = store.ListRegisteredLimits(ctx, "compute", "r1", "cores")
	if len(limits) != 1 || limits[0].DefaultLimit != 20 {
		t.Fatalf("expected replaced limit 20, got %+v", limits)
	}

	if err := store.DeleteRegisteredLimit(ctx, "compute", "r1", "cores"); err != nil {
		t.Fatalf("DeleteRegisteredLimit failed: %v", err)
	}
	limits, _ = store.ListRegisteredLimits(ctx, "compute", "r1", "cores")
	if len(limits) != 0 {
		t.Fatalf("expected deleted limit, got %+v", limits)
	}
}

func TestSQLiteStoreProjectLimits(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	if err := store.PutProjectLimit(ctx, "compute", "r1", ProjectLimit{ResourceName: "cores"}); err == nil {
		t.Fatal("expected error for empty project id")
	}

	if err := store.PutProjectLimit(ctx, "compute", "r1", ProjectLimit{ProjectID: "p1", ResourceName: "cores", ResourceLimit: 4}); err != nil {
		t.Fatalf("PutProjectLimit failed: %v", err)
	}
	if err := store.PutProjectLimit(ctx, "compute", "r1", ProjectLimit{ProjectID: "p2", ResourceName: "cores", ResourceLimit: 8}); err != nil {
		t.Fatalf("PutProjectLimit failed: %v", err)
	}

	limits, err := store.ListProjectLimits(ctx, "compute", "r1", "cores", "p1")
	if err != nil {
		t.Fatalf("ListProjectLimits failed: %v", err)
	}
	if len(limits) != 1 || limits[0].ResourceLimit != 4 {
		t.Fatalf("unexpected limits %+v", limits)
	}

	if err := store.DeleteProjectLimit(ctx, "compute", "r1", "cores", "p1"); err != nil {
		t.Fatalf("DeleteProjectLimit failed: %v", err)
	}
	limits, _ = store.ListProjectLimits(ctx, "compute", "r1", "cores", "p1")
	if len(limits) != 0 {
		t.Fatalf("expected deleted override, got %+v", limits)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := store.PutEndpoint(ctx, Endpoint{ID: "e1", ServiceID: "compute", RegionID: "r1"}); err != nil {
		t.Fatalf("PutEndpoint failed: %v", err)
	}
	if err := store.PutRegisteredLimit(ctx, "compute", "r1", RegisteredLimit{ResourceName: "cores", DefaultLimit: 10}); err != nil {
		t.Fatalf("PutRegisteredLimit failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	endpoint, err := reopened.GetEndpoint(ctx, "e1")
	if err != nil {
		t.Fatalf("GetEndpoint after reopen failed: %v", err)
	}
	if endpoint.ServiceID != "compute" {
		t.Fatalf("unexpected endpoint %+v", endpoint)
	}

	limits, err := reopened.ListRegisteredLimits(ctx, "compute", "r1", "")
	if err != nil {
		t.Fatalf("ListRegisteredLimits after reopen failed: %v", err)
	}
	if len(limits) != 1 || limits[0].DefaultLimit != 10 {
		t.Fatalf("unexpected limits %+v", limits)
	}
}

func TestSQLiteStoreCloseIsIdempotent(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
