// Package storage defines the persistence interface for ingested artifacts and chunks.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/tadoru/internal/models"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("not found")

// Storage is the artifact store access layer. The resolution path uses only
// the read methods; the write methods exist for ingest tooling and tests.
// Every read predicate is tenant-scoped.
type Storage interface {
	// Write path (ingest tooling only)
	PutArtifact(ctx context.Context, a *models.Artifact) error
	BatchPutArtifacts(ctx context.Context, artifacts []*models.Artifact) error
	PutChunk(ctx context.Context, c *models.Chunk) error
	BatchPutChunks(ctx context.Context, chunks []*models.Chunk) error

	// Read path (resolvers)
	GetArtifact(ctx context.Context, tenantID, id string) (*models.Artifact, error)
	GetArtifactBySourceKey(ctx context.Context, tenantID, connector, sourceKey string) (*models.Artifact, error)
	ListMessageArtifacts(ctx context.Context, tenantID, channelID string, from, to time.Time) ([]*models.Artifact, error)
	ListDocumentChunks(ctx context.Context, tenantID, documentID string) ([]*models.Chunk, error)

	// Stats
	CountArtifacts(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
