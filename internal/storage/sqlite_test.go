package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/tadoru/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStorage_Artifacts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := &models.Artifact{
		ID:              "a1",
		TenantID:        "t1",
		Connector:       "slack",
		SourceType:      models.SourceTypeMessage,
		ChannelID:       "C1",
		Metadata:        map[string]interface{}{"user": "alice"},
		SourceUpdatedAt: time.Unix(1726000000, 0).UTC(),
	}
	if err := store.PutArtifact(ctx, a); err != nil {
		t.Fatal(err)
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetArtifact(ctx, "t1", "a1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ChannelID != "C1" || got.Connector != "slack" {
		t.Errorf("got %+v", got)
	}
	if got.Metadata["user"] != "alice" {
		t.Errorf("metadata: got %v", got.Metadata)
	}

	// Tenant scoping: same id, wrong tenant.
	if _, err := store.GetArtifact(ctx, "t2", "a1"); err != ErrNotFound {
		t.Errorf("cross-tenant get: got %v, want ErrNotFound", err)
	}

	n, err := store.CountArtifacts(ctx)
	if err != nil || n != 1 {
		t.Errorf("CountArtifacts: %v, %d", err, n)
	}
}

func TestSQLiteStorage_SourceKeyLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	artifacts := []*models.Artifact{
		{ID: "j1", TenantID: "t1", Connector: "jira", SourceType: models.SourceTypeIssue,
			SourceKey: "PROJ-1", SourceUpdatedAt: time.Now()},
		{ID: "j2", TenantID: "t2", Connector: "jira", SourceType: models.SourceTypeIssue,
			SourceKey: "PROJ-1", SourceUpdatedAt: time.Now()},
	}
	if err := store.BatchPutArtifacts(ctx, artifacts); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetArtifactBySourceKey(ctx, "t1", "jira", "PROJ-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "j1" {
		t.Errorf("got %s, want j1 (tenant t1's artifact)", got.ID)
	}

	if _, err := store.GetArtifactBySourceKey(ctx, "t1", "jira", "PROJ-404"); err != ErrNotFound {
		t.Errorf("missing key: got %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_MessageWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Unix(1726000000, 0).UTC()

	artifacts := []*models.Artifact{
		{ID: "m1", TenantID: "t1", Connector: "slack", SourceType: models.SourceTypeMessage,
			ChannelID: "C1", SourceUpdatedAt: base.Add(-10 * time.Minute)},
		{ID: "m2", TenantID: "t1", Connector: "slack", SourceType: models.SourceTypeMessage,
			ChannelID: "C1", SourceUpdatedAt: base.Add(-30 * time.Second)},
		{ID: "m3", TenantID: "t1", Connector: "slack", SourceType: models.SourceTypeMessage,
			ChannelID: "C1", SourceUpdatedAt: base.Add(45 * time.Second)},
		// Different channel: must not appear.
		{ID: "m4", TenantID: "t1", Connector: "slack", SourceType: models.SourceTypeMessage,
			ChannelID: "C2", SourceUpdatedAt: base},
		// Different tenant, same channel: must not appear.
		{ID: "m5", TenantID: "t2", Connector: "slack", SourceType: models.SourceTypeMessage,
			ChannelID: "C1", SourceUpdatedAt: base},
		// Non-message type in the same channel: must not appear.
		{ID: "m6", TenantID: "t1", Connector: "slack", SourceType: "file",
			ChannelID: "C1", SourceUpdatedAt: base},
	}
	if err := store.BatchPutArtifacts(ctx, artifacts); err != nil {
		t.Fatal(err)
	}

	list, err := store.ListMessageArtifacts(ctx, "t1", "C1", base.Add(-5*time.Minute), base.Add(5*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 artifacts in window, got %d", len(list))
	}
	if list[0].ID != "m2" || list[1].ID != "m3" {
		t.Errorf("order: got %s, %s", list[0].ID, list[1].ID)
	}
}

func TestSQLiteStorage_MessageWindowNonUTCOffset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Unix(1726000000, 0).UTC()

	// Ingest bundles carry RFC3339 timestamps that keep their original offset
	// through json.Unmarshal; the window query must still see the instant.
	cest := time.FixedZone("CEST", 2*60*60)
	artifacts := []*models.Artifact{
		{ID: "m1", TenantID: "t1", Connector: "slack", SourceType: models.SourceTypeMessage,
			ChannelID: "C1", SourceUpdatedAt: base.In(cest)},
		{ID: "m2", TenantID: "t1", Connector: "slack", SourceType: models.SourceTypeMessage,
			ChannelID: "C1", SourceUpdatedAt: base.Add(30 * time.Second)},
	}
	if err := store.BatchPutArtifacts(ctx, artifacts); err != nil {
		t.Fatal(err)
	}

	list, err := store.ListMessageArtifacts(ctx, "t1", "C1", base.Add(-5*time.Minute), base.Add(5*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 artifacts in window, got %d", len(list))
	}
	// Ordering is chronological, not lexicographic over offset strings.
	if list[0].ID != "m1" || list[1].ID != "m2" {
		t.Errorf("order: got %s, %s", list[0].ID, list[1].ID)
	}
	if !list[0].SourceUpdatedAt.Equal(base) {
		t.Errorf("instant: got %v, want %v", list[0].SourceUpdatedAt, base)
	}
}

func TestSQLiteStorage_Chunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Unix(1726000000, 0).UTC()

	chunks := []*models.Chunk{
		{ID: "c2", TenantID: "t1", DocumentID: "d1", Content: "second",
			BlockIDs: []string{"b3", "b4"}, CreatedAt: base.Add(time.Minute)},
		{ID: "c1", TenantID: "t1", DocumentID: "d1", Content: "first",
			BlockIDs: []string{"b1", "b2"}, CreatedAt: base},
		// No block ids: not citable, excluded from the read path.
		{ID: "c3", TenantID: "t1", DocumentID: "d1", Content: "uncitable", CreatedAt: base},
		{ID: "c4", TenantID: "t2", DocumentID: "d1", Content: "other tenant",
			BlockIDs: []string{"b1"}, CreatedAt: base},
	}
	if err := store.BatchPutChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}

	list, err := store.ListDocumentChunks(ctx, "t1", "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 citable chunks, got %d", len(list))
	}
	if list[0].ID != "c1" || list[1].ID != "c2" {
		t.Errorf("creation order: got %s, %s", list[0].ID, list[1].ID)
	}
	if len(list[0].BlockIDs) != 2 || list[0].BlockIDs[0] != "b1" {
		t.Errorf("block ids: got %v", list[0].BlockIDs)
	}

	n, err := store.CountChunks(ctx)
	if err != nil || n != 4 {
		t.Errorf("CountChunks: %v, %d", err, n)
	}
}
