package resolver

import (
	"context"
	"errors"

	"github.com/hyperjump/tadoru/internal/models"
	"github.com/hyperjump/tadoru/internal/storage"
)

// JiraResolver resolves issue-key references with a point lookup on the
// (tenant_id, connector, source_key) partial index.
type JiraResolver struct {
	store storage.Storage
}

// NewJiraResolver creates a Jira resolver.
func NewJiraResolver(store storage.Storage) *JiraResolver {
	return &JiraResolver{store: store}
}

// Connector returns the Jira connector id.
func (r *JiraResolver) Connector() models.Connector {
	return models.ConnectorJira
}

// ResolveBatch resolves each reference independently, preserving input order.
func (r *JiraResolver) ResolveBatch(ctx context.Context, tenantID string, refs []models.CitationReference) []*models.CitationResolutionResult {
	out := make([]*models.CitationResolutionResult, len(refs))
	for i, ref := range refs {
		key := ref.Keys[models.KeyIssueKey]
		if key == "" {
			out[i] = notFound(ref)
			continue
		}
		a, err := r.store.GetArtifactBySourceKey(ctx, tenantID, string(models.ConnectorJira), key)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			out[i] = notFound(ref)
		case err != nil:
			out[i] = failed(ctx, ref)
		default:
			out[i] = resolved(ref, a)
		}
	}
	return out
}
