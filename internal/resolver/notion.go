package resolver

import (
	"context"

	"github.com/hyperjump/tadoru/internal/classify"
	"github.com/hyperjump/tadoru/internal/models"
	"github.com/hyperjump/tadoru/internal/storage"
)

// NotionResolver resolves document/block references to the earliest-created
// chunk containing any referenced block id. Notion documents are block-ordered,
// so creation-time ordering approximates source document order well enough for
// citation display.
type NotionResolver struct {
	store storage.Storage
}

// NewNotionResolver creates a Notion resolver.
func NewNotionResolver(store storage.Storage) *NotionResolver {
	return &NotionResolver{store: store}
}

// Connector returns the Notion connector id.
func (r *NotionResolver) Connector() models.Connector {
	return models.ConnectorNotion
}

// ResolveBatch resolves each reference independently, preserving input order.
func (r *NotionResolver) ResolveBatch(ctx context.Context, tenantID string, refs []models.CitationReference) []*models.CitationResolutionResult {
	out := make([]*models.CitationResolutionResult, len(refs))
	for i, ref := range refs {
		out[i] = r.resolveOne(ctx, tenantID, ref)
	}
	return out
}

func (r *NotionResolver) resolveOne(ctx context.Context, tenantID string, ref models.CitationReference) *models.CitationResolutionResult {
	documentID := ref.Keys[models.KeyDocumentID]
	blockIDs := classify.BlockIDs(ref)
	if documentID == "" || len(blockIDs) == 0 {
		return notFound(ref)
	}

	chunks, err := r.store.ListDocumentChunks(ctx, tenantID, documentID)
	if err != nil {
		return failed(ctx, ref)
	}

	wanted := make(map[string]struct{}, len(blockIDs))
	for _, b := range blockIDs {
		wanted[b] = struct{}{}
	}
	// Chunks arrive in creation order; the first containing any referenced
	// block wins.
	for _, c := range chunks {
		for _, b := range c.BlockIDs {
			if _, ok := wanted[b]; ok {
				return resolved(ref, chunkArtifact(c))
			}
		}
	}
	return notFound(ref)
}

// chunkArtifact presents a chunk in the uniform artifact shape so every
// resolver returns the same contract to the rendering UI.
func chunkArtifact(c *models.Chunk) *models.Artifact {
	return &models.Artifact{
		ID:         c.ID,
		TenantID:   c.TenantID,
		Connector:  string(models.ConnectorNotion),
		SourceType: models.SourceTypeChunk,
		Metadata: map[string]interface{}{
			"document_id": c.DocumentID,
			"block_ids":   c.BlockIDs,
		},
		SourceUpdatedAt: c.CreatedAt,
		CreatedAt:       c.CreatedAt,
	}
}
