package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/tadoru/internal/models"
)

func testResponse() *models.ResolveResponse {
	return &models.ResolveResponse{
		Results: []*models.CitationResolutionResult{
			{
				Marker:    models.CitationMarker{URL: "https://acme.slack.com/archives/C1/p1", Label: "[1]"},
				Status:    models.StatusResolved,
				Hostname:  "acme.slack.com",
				Connector: models.ConnectorSlack,
				Artifact:  &models.Artifact{ID: "m1", Connector: "slack", SourceType: "message"},
			},
			{
				Marker: models.CitationMarker{URL: "not-a-url", Label: "[2]"},
				Status: models.StatusSkipped,
				Reason: models.ReasonInvalidURL,
			},
		},
		UniqueSourceCount: 1,
		Skipped:           1,
		QueryTime:         7,
	}
}

func TestWriteResolveResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResolveResults(&buf, testResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteResolveResults(json): %v", err)
	}
	var decoded models.ResolveResponse
	if err := json.NewDecoder(strings.NewReader(buf.String())).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.UniqueSourceCount != 1 || len(decoded.Results) != 2 {
		t.Errorf("decoded: %+v", decoded)
	}
	if decoded.Results[0].Artifact == nil || decoded.Results[0].Artifact.ID != "m1" {
		t.Errorf("first result artifact: %+v", decoded.Results[0])
	}
}

func TestWriteResolveResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResolveResults(&buf, testResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "1 unique source(s)") {
		t.Errorf("missing unique count: %s", out)
	}
	if !strings.Contains(out, "acme.slack.com") || !strings.Contains(out, "invalid_url") {
		t.Errorf("missing result details: %s", out)
	}
}

func TestWriteResolveResults_Compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResolveResults(&buf, testResponse(), OutputCompact); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "resolved\t") {
		t.Errorf("first line: %q", lines[0])
	}
	if !strings.Contains(lines[2], "unique_sources=1") {
		t.Errorf("summary line: %q", lines[2])
	}
}
