// Package models defines core data structures for citation markers, references,
// artifacts, and resolution results.
package models

// Connector identifies the third-party data source a citation points at.
type Connector string

const (
	// ConnectorSlack is the Slack message connector.
	ConnectorSlack Connector = "slack"
	// ConnectorNotion is the Notion page/block connector.
	ConnectorNotion Connector = "notion"
	// ConnectorJira is the Jira issue connector.
	ConnectorJira Connector = "jira"
	// ConnectorUnknown marks references whose hostname matches no registered connector.
	ConnectorUnknown Connector = "unknown"
)

// CitationMarker is a raw <url|label> span extracted verbatim from generated text.
// Position is the byte offset of the opening bracket in the source text, stable
// for downstream highlighting.
type CitationMarker struct {
	URL      string `json:"url"`
	Label    string `json:"label"`
	Position int    `json:"position"`
}

// CitationReference is a classified marker: hostname, connector hint, and the
// connector-specific raw keys extracted from the URL.
type CitationReference struct {
	Marker    CitationMarker    `json:"marker"`
	Hostname  string            `json:"hostname"`
	Connector Connector         `json:"connector"`
	Keys      map[string]string `json:"keys,omitempty"`
}

// Key names used in CitationReference.Keys.
const (
	KeyChannelID  = "channel_id"
	KeyTimestamp  = "ts"
	KeyDocumentID = "document_id"
	KeyBlockIDs   = "block_ids"
	KeyIssueKey   = "issue_key"
)
