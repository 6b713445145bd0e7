package resolve

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tadoru/internal/config"
	"github.com/hyperjump/tadoru/internal/models"
	"github.com/hyperjump/tadoru/internal/resolver"
)

// stubResolver returns a fixed status for every reference. When block is set
// it waits for ctx cancellation first, like a hung store query.
type stubResolver struct {
	conn   models.Connector
	status models.ResolutionStatus
	delay  time.Duration
	block  bool
}

func (s *stubResolver) Connector() models.Connector { return s.conn }

func (s *stubResolver) ResolveBatch(ctx context.Context, _ string, refs []models.CitationReference) []*models.CitationResolutionResult {
	if s.block {
		<-ctx.Done()
		out := make([]*models.CitationResolutionResult, len(refs))
		for i, ref := range refs {
			reason := models.ReasonCancelled
			if ctx.Err() == context.DeadlineExceeded {
				reason = models.ReasonTimeout
			}
			out[i] = &models.CitationResolutionResult{
				Marker: ref.Marker, Status: models.StatusFailed, Reason: reason,
				Hostname: ref.Hostname, Connector: ref.Connector,
			}
		}
		return out
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
		}
	}
	out := make([]*models.CitationResolutionResult, len(refs))
	for i, ref := range refs {
		res := &models.CitationResolutionResult{
			Marker: ref.Marker, Status: s.status,
			Hostname: ref.Hostname, Connector: ref.Connector,
		}
		if s.status == models.StatusResolved {
			res.Artifact = &models.Artifact{ID: "a-" + string(s.conn)}
		}
		out[i] = res
	}
	return out
}

type stubSet struct {
	resolvers map[models.Connector]resolver.Resolver
}

func (s *stubSet) For(c models.Connector) resolver.Resolver {
	if r, ok := s.resolvers[c]; ok {
		return r
	}
	return &resolver.UnknownResolver{}
}

func testConfig() *config.ResolveConfig {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return &cfg.Resolve
}

func newTestCoordinator(set ResolverSet) *Coordinator {
	return NewCoordinator(set, testConfig(), zap.NewNop())
}

func TestResolve_UniqueCountSameHostname(t *testing.T) {
	c := newTestCoordinator(&stubSet{})
	resp, err := c.Resolve(context.Background(), &models.ResolveRequest{
		TenantID: "t1",
		Text:     "See <https://github.com/a|[1]> and <https://github.com/b|[2]>",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.UniqueSourceCount != 1 {
		t.Errorf("unique count: got %d, want 1", resp.UniqueSourceCount)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	for i, res := range resp.Results {
		if res.Status != models.StatusNotFound {
			t.Errorf("result %d: got %s, want not_found", i, res.Status)
		}
	}
}

func TestResolve_SkippedInvalidURL(t *testing.T) {
	c := newTestCoordinator(&stubSet{})
	resp, err := c.Resolve(context.Background(), &models.ResolveRequest{
		TenantID: "t1",
		Text:     "<not-a-url|[1]> <https://example.com|[2]>",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[0].Status != models.StatusSkipped || resp.Results[0].Reason != models.ReasonInvalidURL {
		t.Errorf("first: %+v", resp.Results[0])
	}
	if resp.Results[1].Status != models.StatusNotFound {
		t.Errorf("second: %+v", resp.Results[1])
	}
	if resp.UniqueSourceCount != 1 {
		t.Errorf("unique count: got %d, want 1", resp.UniqueSourceCount)
	}
	if resp.Skipped != 1 {
		t.Errorf("skipped: got %d, want 1", resp.Skipped)
	}
}

func TestResolve_OrderPreservedAcrossGroups(t *testing.T) {
	// Slack completes last; output order must still follow marker positions.
	set := &stubSet{resolvers: map[models.Connector]resolver.Resolver{
		models.ConnectorSlack: &stubResolver{
			conn: models.ConnectorSlack, status: models.StatusResolved, delay: 50 * time.Millisecond,
		},
		models.ConnectorJira: &stubResolver{
			conn: models.ConnectorJira, status: models.StatusResolved,
		},
	}}
	c := newTestCoordinator(set)
	text := "<https://acme.slack.com/archives/C1/p1726000000123456|[1]> " +
		"<https://acme.atlassian.net/browse/P-1|[2]> " +
		"<https://acme.slack.com/archives/C2/p1726000009123456|[3]>"
	resp, err := c.Resolve(context.Background(), &models.ResolveRequest{TenantID: "t1", Text: text})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}
	wantLabels := []string{"[1]", "[2]", "[3]"}
	wantConn := []models.Connector{models.ConnectorSlack, models.ConnectorJira, models.ConnectorSlack}
	for i, res := range resp.Results {
		if res.Marker.Label != wantLabels[i] {
			t.Errorf("result %d label: got %s, want %s", i, res.Marker.Label, wantLabels[i])
		}
		if res.Connector != wantConn[i] {
			t.Errorf("result %d connector: got %s, want %s", i, res.Connector, wantConn[i])
		}
		if res.Status != models.StatusResolved {
			t.Errorf("result %d status: got %s", i, res.Status)
		}
	}
}

func TestResolve_GroupTimeoutDegradesOnlyThatGroup(t *testing.T) {
	set := &stubSet{resolvers: map[models.Connector]resolver.Resolver{
		models.ConnectorSlack: &stubResolver{conn: models.ConnectorSlack, block: true},
		models.ConnectorNotion: &stubResolver{
			conn: models.ConnectorNotion, status: models.StatusResolved,
		},
	}}
	c := newTestCoordinator(set)
	text := "<https://acme.slack.com/archives/C1/p1726000000123456|[1]> " +
		"<https://www.notion.so/Doc-5f2c8a1b9d3e4f60a7b8c9d0e1f2a3b4#block-b1|[2]>"
	resp, err := c.Resolve(context.Background(), &models.ResolveRequest{
		TenantID:       "t1",
		Text:           text,
		GroupTimeoutMs: 50,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[0].Status != models.StatusFailed || resp.Results[0].Reason != models.ReasonTimeout {
		t.Errorf("slack result: %+v", resp.Results[0])
	}
	if resp.Results[1].Status != models.StatusResolved {
		t.Errorf("notion result: %+v", resp.Results[1])
	}
	// Failed groups still count toward source diversity.
	if resp.UniqueSourceCount != 2 {
		t.Errorf("unique count: got %d, want 2", resp.UniqueSourceCount)
	}
}

func TestResolve_ParentCancellationDegradesInFlightGroups(t *testing.T) {
	set := &stubSet{resolvers: map[models.Connector]resolver.Resolver{
		models.ConnectorSlack: &stubResolver{conn: models.ConnectorSlack, block: true},
	}}
	cfg := testConfig()
	// Generous timeouts so only the caller's cancellation can end the call.
	cfg.TotalTimeoutMs = 60000
	cfg.GroupTimeoutMs = 60000
	c := NewCoordinator(set, cfg, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	resp, err := c.Resolve(ctx, &models.ResolveRequest{
		TenantID: "t1",
		Text:     "<https://acme.slack.com/archives/C1/p1726000000123456|[1]>",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	if resp.Results[0].Status != models.StatusFailed || resp.Results[0].Reason != models.ReasonCancelled {
		t.Errorf("cancelled group: %+v", resp.Results[0])
	}
	// Cancellation still counts the source: the marker named one.
	if resp.UniqueSourceCount != 1 {
		t.Errorf("unique count: got %d, want 1", resp.UniqueSourceCount)
	}
}

func TestResolve_MissingTenantFails(t *testing.T) {
	c := newTestCoordinator(&stubSet{})
	if _, err := c.Resolve(context.Background(), &models.ResolveRequest{Text: "x"}); err == nil {
		t.Error("expected error for missing tenant id")
	}
}

func TestResolve_EmptyText(t *testing.T) {
	c := newTestCoordinator(&stubSet{})
	resp, err := c.Resolve(context.Background(), &models.ResolveRequest{TenantID: "t1", Text: "no markers here"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 0 || resp.UniqueSourceCount != 0 {
		t.Errorf("got %d results, unique %d", len(resp.Results), resp.UniqueSourceCount)
	}
}

func TestResolve_MaxMarkersCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxMarkers = 1
	c := NewCoordinator(&stubSet{}, cfg, zap.NewNop())
	resp, err := c.Resolve(context.Background(), &models.ResolveRequest{
		TenantID: "t1",
		Text:     "<https://a.com|[1]> <https://b.com|[2]>",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("expected 1 result under cap, got %d", len(resp.Results))
	}
	if resp.Truncated != 1 {
		t.Errorf("truncated: got %d, want 1", resp.Truncated)
	}
}

func TestCountUniqueSources(t *testing.T) {
	refs := []models.CitationReference{
		{Hostname: "github.com"},
		{Hostname: "github.com"},
		{Hostname: "example.com"},
		{}, // skipped marker slot
	}
	if got := CountUniqueSources(refs); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
	if got := CountUniqueSources(nil); got != 0 {
		t.Errorf("empty: got %d", got)
	}
}
