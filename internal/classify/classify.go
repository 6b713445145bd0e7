// Package classify maps raw citation markers to connector-specific references.
package classify

import (
	"net/url"
	"strings"

	"github.com/hyperjump/tadoru/internal/models"
)

// Classify parses the marker's URL and extracts the hostname plus any
// connector-identifying keys. The second return value is false when the URL is
// invalid; that is a skip, not an error, and the marker is excluded from
// resolution. Unknown hostnames classify successfully with ConnectorUnknown.
func Classify(m models.CitationMarker) (models.CitationReference, bool) {
	u, err := url.Parse(m.URL)
	if err != nil || u.Hostname() == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return models.CitationReference{}, false
	}

	host := strings.ToLower(u.Hostname())
	ref := models.CitationReference{
		Marker:    m,
		Hostname:  host,
		Connector: models.ConnectorUnknown,
	}

	switch {
	case host == "slack.com" || strings.HasSuffix(host, ".slack.com"):
		ref.Connector = models.ConnectorSlack
		ref.Keys = slackKeys(u)
	case host == "notion.so" || host == "www.notion.so" || strings.HasSuffix(host, ".notion.site"):
		ref.Connector = models.ConnectorNotion
		ref.Keys = notionKeys(u)
	case strings.HasSuffix(host, ".atlassian.net"):
		ref.Connector = models.ConnectorJira
		ref.Keys = jiraKeys(u)
	}
	return ref, true
}

// slackKeys extracts the channel id and message timestamp from a Slack archive
// URL like https://team.slack.com/archives/C024BE91L/p1726000000123456.
// The p-prefixed path segment is seconds+microseconds without a separator.
func slackKeys(u *url.URL) map[string]string {
	parts := splitPath(u.Path)
	if len(parts) < 3 || parts[0] != "archives" {
		return nil
	}
	channel := parts[1]
	p := parts[2]
	if channel == "" || len(p) < 8 || p[0] != 'p' {
		return nil
	}
	digits := p[1:]
	if !allDigits(digits) || len(digits) <= 6 {
		return nil
	}
	ts := digits[:len(digits)-6] + "." + digits[len(digits)-6:]
	return map[string]string{
		models.KeyChannelID: channel,
		models.KeyTimestamp: ts,
	}
}

// notionKeys extracts the page id from the last path segment of a Notion URL
// (trailing 32 hex chars, e.g. /Design-Doc-5f2c...) and any referenced block
// ids from the fragment. Multiple block ids are comma-separated in the fragment.
func notionKeys(u *url.URL) map[string]string {
	parts := splitPath(u.Path)
	if len(parts) == 0 {
		return nil
	}
	last := parts[len(parts)-1]
	if i := strings.LastIndexByte(last, '-'); i >= 0 {
		last = last[i+1:]
	}
	if len(last) != 32 || !allHex(last) {
		return nil
	}
	keys := map[string]string{models.KeyDocumentID: last}
	if frag := strings.TrimPrefix(u.Fragment, "block-"); frag != "" {
		var blocks []string
		for _, b := range strings.Split(frag, ",") {
			if b = strings.TrimSpace(b); b != "" {
				blocks = append(blocks, b)
			}
		}
		if len(blocks) > 0 {
			keys[models.KeyBlockIDs] = strings.Join(blocks, ",")
		}
	}
	return keys
}

// jiraKeys extracts the issue key from a browse URL like
// https://acme.atlassian.net/browse/PROJ-123.
func jiraKeys(u *url.URL) map[string]string {
	parts := splitPath(u.Path)
	if len(parts) < 2 || parts[0] != "browse" {
		return nil
	}
	key := parts[1]
	if key == "" || !strings.Contains(key, "-") {
		return nil
	}
	return map[string]string{models.KeyIssueKey: key}
}

// BlockIDs splits the comma-joined block id key back into a list.
func BlockIDs(ref models.CitationReference) []string {
	raw := ref.Keys[models.KeyBlockIDs]
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func splitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func allHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return len(s) > 0
}
