package models

// ResolutionStatus is the outcome of resolving a single citation marker.
type ResolutionStatus string

const (
	// StatusResolved means the reference was mapped to a stored artifact.
	StatusResolved ResolutionStatus = "resolved"
	// StatusNotFound means the reference named a source but no artifact matched.
	StatusNotFound ResolutionStatus = "not_found"
	// StatusSkipped means the marker could not be classified (invalid URL) and
	// was excluded from resolution.
	StatusSkipped ResolutionStatus = "skipped"
	// StatusFailed means the resolver group timed out, was cancelled, or hit a
	// store error. Failed is a degraded per-marker outcome, never a call failure.
	StatusFailed ResolutionStatus = "failed"
)

// FailureReason qualifies Skipped and Failed statuses.
type FailureReason string

const (
	ReasonInvalidURL FailureReason = "invalid_url"
	ReasonTimeout    FailureReason = "timeout"
	ReasonCancelled  FailureReason = "cancelled"
	ReasonStoreError FailureReason = "store_error"
)

// CitationResolutionResult pairs one input marker with its resolution outcome.
// Artifact is nil unless Status is resolved; the rendering UI shows a nil
// artifact as an unresolved citation badge.
type CitationResolutionResult struct {
	Marker    CitationMarker   `json:"marker"`
	Artifact  *Artifact        `json:"artifact,omitempty"`
	Status    ResolutionStatus `json:"status"`
	Reason    FailureReason    `json:"reason,omitempty"`
	Hostname  string           `json:"hostname,omitempty"`
	Connector Connector        `json:"connector,omitempty"`
}

// ResolveResponse is the response for a resolution request. Results are in
// original marker order. UniqueSourceCount is the number of distinct hostnames
// among classifiable references, independent of resolution success. Truncated
// counts markers dropped past the per-request cap, so callers can tell a
// short result list from a short input.
type ResolveResponse struct {
	Results           []*CitationResolutionResult `json:"results"`
	UniqueSourceCount int                         `json:"unique_source_count"`
	Skipped           int                         `json:"skipped"`
	Truncated         int                         `json:"truncated,omitempty"`
	QueryTime         int64                       `json:"query_time_ms"`
}
