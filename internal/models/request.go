package models

import "fmt"

// ResolveRequest is a citation resolution request. GroupTimeoutMs optionally
// overrides the configured per-connector-group resolver timeout.
type ResolveRequest struct {
	TenantID       string `json:"tenant_id"`
	Text           string `json:"text"`
	GroupTimeoutMs int    `json:"group_timeout_ms,omitempty"`
}

// Validate ensures the request has the required fields. A missing tenant id is
// a contract error and fails the whole call; everything else degrades per marker.
func (r *ResolveRequest) Validate() error {
	if r.TenantID == "" {
		return fmt.Errorf("tenant_id cannot be empty")
	}
	return nil
}
