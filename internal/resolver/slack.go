package resolver

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/tadoru/internal/models"
	"github.com/hyperjump/tadoru/internal/storage"
)

// SlackResolver resolves channel/timestamp references to message artifacts.
// Lookups are channel-scoped and bounded to a time window around the reference
// timestamp; the store serves them from the (tenant_id, channel_id,
// source_updated_at) partial index on message rows.
type SlackResolver struct {
	store  storage.Storage
	window time.Duration
}

// NewSlackResolver creates a Slack resolver with the given search window.
func NewSlackResolver(store storage.Storage, window time.Duration) *SlackResolver {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &SlackResolver{store: store, window: window}
}

// Connector returns the Slack connector id.
func (r *SlackResolver) Connector() models.Connector {
	return models.ConnectorSlack
}

// ResolveBatch resolves each reference independently, preserving input order.
func (r *SlackResolver) ResolveBatch(ctx context.Context, tenantID string, refs []models.CitationReference) []*models.CitationResolutionResult {
	out := make([]*models.CitationResolutionResult, len(refs))
	for i, ref := range refs {
		out[i] = r.resolveOne(ctx, tenantID, ref)
	}
	return out
}

func (r *SlackResolver) resolveOne(ctx context.Context, tenantID string, ref models.CitationReference) *models.CitationResolutionResult {
	channelID := ref.Keys[models.KeyChannelID]
	target, ok := parseSlackTimestamp(ref.Keys[models.KeyTimestamp])
	if channelID == "" || !ok {
		return notFound(ref)
	}

	candidates, err := r.store.ListMessageArtifacts(ctx, tenantID, channelID, target.Add(-r.window), target.Add(r.window))
	if err != nil {
		return failed(ctx, ref)
	}
	best := closestMessage(candidates, target)
	if best == nil {
		return notFound(ref)
	}
	return resolved(ref, best)
}

// closestMessage picks the artifact whose source_updated_at is nearest to
// target. Ties break to the smallest artifact id; candidates arrive ordered by
// (source_updated_at, id), so the first of an equally-distant pair wins only
// when its id is smaller.
func closestMessage(candidates []*models.Artifact, target time.Time) *models.Artifact {
	var best *models.Artifact
	var bestDelta time.Duration
	for _, a := range candidates {
		delta := a.SourceUpdatedAt.Sub(target)
		if delta < 0 {
			delta = -delta
		}
		switch {
		case best == nil, delta < bestDelta:
			best, bestDelta = a, delta
		case delta == bestDelta && a.ID < best.ID:
			best = a
		}
	}
	return best
}

// parseSlackTimestamp converts a "seconds.microseconds" Slack ts into a time.
func parseSlackTimestamp(ts string) (time.Time, bool) {
	if ts == "" {
		return time.Time{}, false
	}
	secPart, microPart := ts, ""
	if i := strings.IndexByte(ts, '.'); i >= 0 {
		secPart, microPart = ts[:i], ts[i+1:]
	}
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	var micro int64
	if microPart != "" {
		micro, err = strconv.ParseInt(microPart, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
	}
	return time.Unix(sec, micro*1000).UTC(), true
}
