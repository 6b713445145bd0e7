// Package cli provides CLI output utilities for Tadoru.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/tadoru/internal/models"
	"github.com/hyperjump/tadoru/pkg/utils"
)

// OutputFormat is the format for resolution result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputCompact is one result per line.
	OutputCompact OutputFormat = "compact"
)

// WriteResolveResults writes resolution results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteResolveResults(w io.Writer, response *models.ResolveResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		writeResolveResultsCompact(w, response)
		return nil
	default:
		writeResolveResultsText(w, response)
		return nil
	}
}

func writeResolveResultsText(w io.Writer, response *models.ResolveResponse) {
	fmt.Fprintf(w, "\nResolved %d citation(s) in %dms (%d unique source(s), %d skipped)\n",
		len(response.Results), response.QueryTime, response.UniqueSourceCount, response.Skipped)
	if response.Truncated > 0 {
		fmt.Fprintf(w, "%d marker(s) past the cap were not resolved\n", response.Truncated)
	}
	fmt.Fprintln(w)
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%s] %s %s\n", result.Status, result.Marker.Label, utils.Truncate(result.Marker.URL, 80))
		if result.Hostname != "" {
			fmt.Fprintf(w, "Source: %s (%s)\n", result.Hostname, result.Connector)
		}
		if result.Reason != "" {
			fmt.Fprintf(w, "Reason: %s\n", result.Reason)
		}
		if result.Artifact != nil {
			fmt.Fprintf(w, "Artifact: %s (%s/%s)\n", result.Artifact.ID, result.Artifact.Connector, result.Artifact.SourceType)
		}
		fmt.Fprintln(w)
	}
}

func writeResolveResultsCompact(w io.Writer, response *models.ResolveResponse) {
	for _, result := range response.Results {
		artifactID := "-"
		if result.Artifact != nil {
			artifactID = result.Artifact.ID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", result.Status, result.Hostname, result.Marker.Label, artifactID)
	}
	fmt.Fprintf(w, "unique_sources=%d skipped=%d truncated=%d query_time_ms=%d\n",
		response.UniqueSourceCount, response.Skipped, response.Truncated, response.QueryTime)
}
