// Package resolver implements the per-connector citation resolution protocols.
package resolver

import (
	"context"
	"time"

	"github.com/hyperjump/tadoru/internal/models"
	"github.com/hyperjump/tadoru/internal/storage"
)

// Resolver maps classified references to stored artifacts for one connector.
// ResolveBatch must return exactly one result per input reference, preserving
// input order, even on partial internal failure: missing rows are not_found,
// store errors and cancellation are failed, never a panic or a short slice.
type Resolver interface {
	Connector() models.Connector
	ResolveBatch(ctx context.Context, tenantID string, refs []models.CitationReference) []*models.CitationResolutionResult
}

// Registry holds one resolver per connector plus an unknown fallback.
type Registry struct {
	resolvers map[models.Connector]Resolver
	fallback  Resolver
}

// NewRegistry builds the default resolver set over the given store.
// slackWindow bounds the time window searched around a Slack message timestamp.
func NewRegistry(store storage.Storage, slackWindow time.Duration) *Registry {
	r := &Registry{
		resolvers: make(map[models.Connector]Resolver),
		fallback:  &UnknownResolver{},
	}
	r.Register(NewSlackResolver(store, slackWindow))
	r.Register(NewNotionResolver(store))
	r.Register(NewJiraResolver(store))
	return r
}

// Register adds or replaces the resolver for its connector.
func (r *Registry) Register(res Resolver) {
	r.resolvers[res.Connector()] = res
}

// For returns the resolver for the connector, or the unknown fallback.
func (r *Registry) For(c models.Connector) Resolver {
	if res, ok := r.resolvers[c]; ok {
		return res
	}
	return r.fallback
}

// resolved builds a resolved result for ref.
func resolved(ref models.CitationReference, a *models.Artifact) *models.CitationResolutionResult {
	return &models.CitationResolutionResult{
		Marker:    ref.Marker,
		Artifact:  a,
		Status:    models.StatusResolved,
		Hostname:  ref.Hostname,
		Connector: ref.Connector,
	}
}

// notFound builds a not_found result for ref.
func notFound(ref models.CitationReference) *models.CitationResolutionResult {
	return &models.CitationResolutionResult{
		Marker:    ref.Marker,
		Status:    models.StatusNotFound,
		Hostname:  ref.Hostname,
		Connector: ref.Connector,
	}
}

// failed builds a failed result for ref, classifying cancellation separately.
func failed(ctx context.Context, ref models.CitationReference) *models.CitationResolutionResult {
	reason := models.ReasonStoreError
	switch ctx.Err() {
	case context.DeadlineExceeded:
		reason = models.ReasonTimeout
	case context.Canceled:
		reason = models.ReasonCancelled
	}
	return &models.CitationResolutionResult{
		Marker:    ref.Marker,
		Status:    models.StatusFailed,
		Reason:    reason,
		Hostname:  ref.Hostname,
		Connector: ref.Connector,
	}
}
