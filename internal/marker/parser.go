// Package marker extracts raw citation markers from generated answer text.
package marker

import (
	"strings"

	"github.com/hyperjump/tadoru/internal/models"
)

// Parse scans text once, left to right, for citation markers of the form
// <url|label> and returns them in text order. Position is the byte offset of
// the opening bracket. Malformed brackets (unterminated, nested, missing pipe,
// empty reference or label) are skipped; a bad marker never aborts parsing of
// subsequent markers.
func Parse(text string) []models.CitationMarker {
	var markers []models.CitationMarker
	i := 0
	for i < len(text) {
		open := strings.IndexByte(text[i:], '<')
		if open < 0 {
			break
		}
		open += i
		body := text[open+1:]
		end := strings.IndexByte(body, '>')
		if end < 0 {
			// Unterminated: nothing after this bracket can form a marker.
			break
		}
		// A nested opening bracket invalidates the outer one; rescan from the
		// inner bracket so <a <url|label> still yields the inner marker.
		if inner := strings.IndexByte(body[:end], '<'); inner >= 0 {
			i = open + 1 + inner
			continue
		}
		span := body[:end]
		pipe := strings.IndexByte(span, '|')
		if pipe <= 0 || pipe == len(span)-1 {
			// Missing pipe, empty reference, or empty label.
			i = open + 1 + end + 1
			continue
		}
		markers = append(markers, models.CitationMarker{
			URL:      span[:pipe],
			Label:    span[pipe+1:],
			Position: open,
		})
		i = open + 1 + end + 1
	}
	return markers
}
