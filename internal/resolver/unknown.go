package resolver

import (
	"context"

	"github.com/hyperjump/tadoru/internal/models"
)

// UnknownResolver handles references whose hostname matches no registered
// connector. It returns not_found for every input in constant time; an
// unrecognized source is a normal outcome, not an error.
type UnknownResolver struct{}

// Connector returns the unknown connector id.
func (r *UnknownResolver) Connector() models.Connector {
	return models.ConnectorUnknown
}

// ResolveBatch returns one not_found result per reference, in input order.
func (r *UnknownResolver) ResolveBatch(_ context.Context, _ string, refs []models.CitationReference) []*models.CitationResolutionResult {
	out := make([]*models.CitationResolutionResult, len(refs))
	for i, ref := range refs {
		out[i] = notFound(ref)
	}
	return out
}
