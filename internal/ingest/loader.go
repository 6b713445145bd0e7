// Package ingest loads artifact bundle files into the store. It is the local
// stand-in for the external ingestion pipelines: a bundle is a JSON dump of
// artifacts and chunks produced per connector.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/tadoru/internal/models"
	"github.com/hyperjump/tadoru/internal/storage"
)

// Bundle is the on-disk JSON shape of an ingest drop.
type Bundle struct {
	Artifacts []*models.Artifact `json:"artifacts"`
	Chunks    []*models.Chunk    `json:"chunks"`
}

// Loader inserts bundles through the store's write path.
type Loader struct {
	store  storage.Storage
	logger *zap.Logger
}

// NewLoader creates a loader. logger may be nil.
func NewLoader(store storage.Storage, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: store, logger: logger}
}

// LoadFile reads the bundle at path and inserts its artifacts and chunks,
// assigning UUIDs to entries without an id. Returns the number of rows loaded.
func (l *Loader) LoadFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read bundle: %w", err)
	}
	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return 0, fmt.Errorf("failed to parse bundle: %w", err)
	}
	n, err := l.Load(ctx, &bundle)
	if err != nil {
		return n, err
	}
	l.logger.Debug("bundle loaded", zap.String("path", path), zap.Int("rows", n))
	return n, nil
}

// Load inserts the bundle contents. Entries missing a tenant id are rejected:
// every stored row must be tenant-scoped.
func (l *Loader) Load(ctx context.Context, bundle *Bundle) (int, error) {
	for _, a := range bundle.Artifacts {
		if a.TenantID == "" {
			return 0, fmt.Errorf("artifact %q has no tenant_id", a.ID)
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
	}
	for _, c := range bundle.Chunks {
		if c.TenantID == "" {
			return 0, fmt.Errorf("chunk %q has no tenant_id", c.ID)
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
	}
	if len(bundle.Artifacts) > 0 {
		if err := l.store.BatchPutArtifacts(ctx, bundle.Artifacts); err != nil {
			return 0, fmt.Errorf("failed to store artifacts: %w", err)
		}
	}
	if len(bundle.Chunks) > 0 {
		if err := l.store.BatchPutChunks(ctx, bundle.Chunks); err != nil {
			return 0, fmt.Errorf("failed to store chunks: %w", err)
		}
	}
	return len(bundle.Artifacts) + len(bundle.Chunks), nil
}
