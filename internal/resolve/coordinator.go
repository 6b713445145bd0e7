// Package resolve provides the citation resolution coordinator.
package resolve

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tadoru/internal/classify"
	"github.com/hyperjump/tadoru/internal/config"
	"github.com/hyperjump/tadoru/internal/marker"
	"github.com/hyperjump/tadoru/internal/models"
	"github.com/hyperjump/tadoru/internal/resolver"
)

// ResolverSet selects a resolver for a connector. Implemented by
// resolver.Registry; tests inject stub sets.
type ResolverSet interface {
	For(c models.Connector) resolver.Resolver
}

// Coordinator runs a resolution pass: parse markers, classify, fan out one
// concurrent resolver call per connector group, and merge results back into
// original marker order.
type Coordinator struct {
	resolvers ResolverSet
	config    *config.ResolveConfig
	logger    *zap.Logger
}

// NewCoordinator creates a coordinator with the given resolver set.
func NewCoordinator(resolvers ResolverSet, cfg *config.ResolveConfig, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{resolvers: resolvers, config: cfg, logger: logger}
}

// Resolve resolves all citation markers in the request text. The returned
// results are in original marker order, one per marker, regardless of which
// resolver groups completed. A group timeout or store error degrades that
// group's markers to failed; it never aborts the other groups. Only a missing
// tenant id fails the whole call.
func (c *Coordinator) Resolve(ctx context.Context, req *models.ResolveRequest) (*models.ResolveResponse, error) {
	startTime := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if total := c.config.TotalTimeout(); total > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, total)
		defer cancel()
	}

	markers := marker.Parse(req.Text)
	truncated := 0
	if max := c.config.MaxMarkers; max > 0 && len(markers) > max {
		truncated = len(markers) - max
		markers = markers[:max]
	}

	results := make([]*models.CitationResolutionResult, len(markers))
	refs := make([]models.CitationReference, len(markers))
	groups := make(map[models.Connector][]int)
	skipped := 0
	for i, m := range markers {
		ref, ok := classify.Classify(m)
		if !ok {
			results[i] = &models.CitationResolutionResult{
				Marker: m,
				Status: models.StatusSkipped,
				Reason: models.ReasonInvalidURL,
			}
			skipped++
			continue
		}
		refs[i] = ref
		groups[ref.Connector] = append(groups[ref.Connector], i)
	}

	// The unique-source count is a text-level property of the classified
	// references; it never depends on store lookups. Skipped markers leave a
	// zero-value reference behind and are excluded by the empty hostname.
	unique := CountUniqueSources(refs)

	groupTimeout := c.config.GroupTimeout()
	if req.GroupTimeoutMs > 0 {
		groupTimeout = time.Duration(req.GroupTimeoutMs) * time.Millisecond
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for conn, idxs := range groups {
		wg.Add(1)
		go func(conn models.Connector, idxs []int) {
			defer wg.Done()
			gctx := ctx
			if groupTimeout > 0 {
				var cancel context.CancelFunc
				gctx, cancel = context.WithTimeout(ctx, groupTimeout)
				defer cancel()
			}
			batch := make([]models.CitationReference, len(idxs))
			for j, idx := range idxs {
				batch[j] = refs[idx]
			}
			res := c.resolvers.For(conn).ResolveBatch(gctx, req.TenantID, batch)
			mu.Lock()
			for j, idx := range idxs {
				if j < len(res) && res[j] != nil {
					results[idx] = res[j]
				}
			}
			mu.Unlock()
		}(conn, idxs)
	}
	wg.Wait()

	// A resolver that violated the one-result-per-ref contract, or a group
	// that never wrote its slots, degrades to failed rather than dropping
	// markers from the output.
	for i, r := range results {
		if r == nil {
			results[i] = failedResult(ctx, refs[i])
		}
	}

	response := &models.ResolveResponse{
		Results:           results,
		UniqueSourceCount: unique,
		Skipped:           skipped,
		Truncated:         truncated,
		QueryTime:         time.Since(startTime).Milliseconds(),
	}
	c.logger.Debug("resolution complete",
		zap.Int("markers", len(markers)),
		zap.Int("groups", len(groups)),
		zap.Int("unique_sources", unique),
		zap.Int("skipped", skipped),
		zap.Int("truncated", truncated),
		zap.Int64("query_time_ms", response.QueryTime),
	)
	return response, nil
}

// CountUniqueSources returns the number of distinct hostnames among the
// classified references in one pass. References with an empty hostname
// (skipped markers) are ignored. Resolution success is irrelevant: a citation
// counts toward diversity if it named a real source.
func CountUniqueSources(refs []models.CitationReference) int {
	seen := make(map[string]struct{})
	for _, ref := range refs {
		if ref.Hostname == "" {
			continue
		}
		seen[ref.Hostname] = struct{}{}
	}
	return len(seen)
}

func failedResult(ctx context.Context, ref models.CitationReference) *models.CitationResolutionResult {
	reason := models.ReasonTimeout
	if ctx.Err() == context.Canceled {
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
