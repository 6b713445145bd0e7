package models

import "time"

// Artifact is a stored unit of ingested content (message, document chunk,
// ticket), owned and populated by the ingestion pipelines. The resolution
// engine only reads artifacts.
type Artifact struct {
	ID              string                 `json:"id" db:"id"`
	TenantID        string                 `json:"tenant_id" db:"tenant_id"`
	Connector       string                 `json:"connector" db:"connector"`
	SourceType      string                 `json:"source_type" db:"source_type"`
	ChannelID       string                 `json:"channel_id,omitempty" db:"channel_id"`
	SourceKey       string                 `json:"source_key,omitempty" db:"source_key"`
	Metadata        map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	SourceUpdatedAt time.Time              `json:"source_updated_at" db:"source_updated_at"`
	CreatedAt       time.Time              `json:"created_at" db:"created_at"`
}

// Chunk is a block-addressable slice of an ingested document. BlockIDs holds
// the source block ids covered by the chunk; chunks with no block ids are not
// citable and are excluded from resolution queries.
type Chunk struct {
	ID         string    `json:"id" db:"id"`
	TenantID   string    `json:"tenant_id" db:"tenant_id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	Content    string    `json:"content" db:"content"`
	BlockIDs   []string  `json:"block_ids,omitempty" db:"block_ids"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// SourceType values stored on artifacts.
const (
	SourceTypeMessage = "message"
	SourceTypeIssue   = "issue"
	SourceTypeChunk   = "chunk"
)
