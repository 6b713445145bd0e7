// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/tadoru/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// The partial indexes are the performance invariant of the resolution engine:
// channel-scoped time-window lookups and document-scoped chunk scans must be
// index range scans, never full tenant table scans.
func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingest_artifact (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		connector TEXT NOT NULL,
		source_type TEXT NOT NULL,
		channel_id TEXT,
		source_key TEXT,
		metadata TEXT,
		source_updated_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_artifact_channel_time
		ON ingest_artifact(tenant_id, channel_id, source_updated_at)
		WHERE channel_id IS NOT NULL AND source_type = 'message';

	CREATE INDEX IF NOT EXISTS idx_artifact_source_key
		ON ingest_artifact(tenant_id, connector, source_key)
		WHERE source_key IS NOT NULL;

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		content TEXT NOT NULL,
		block_ids TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_created
		ON chunks(tenant_id, document_id, created_at)
		WHERE block_ids IS NOT NULL;
	`
	_, err := db.Exec(schema)
	return err
}

// PutArtifact inserts or replaces an artifact. Timestamps bind in UTC: the
// driver stores time.Time as text with its offset, and the window query
// compares those strings lexicographically, so mixed offsets would break
// range lookups and ordering.
func (s *SQLiteStorage) PutArtifact(ctx context.Context, a *models.Artifact) error {
	metadataJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO ingest_artifact
		 (id, tenant_id, connector, source_type, channel_id, source_key, metadata, source_updated_at, created_at)
		 VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?)`,
		a.ID, a.TenantID, a.Connector, a.SourceType, a.ChannelID, a.SourceKey,
		string(metadataJSON), a.SourceUpdatedAt.UTC(), a.CreatedAt.UTC(),
	)
	return err
}

// BatchPutArtifacts inserts multiple artifacts in a transaction.
func (s *SQLiteStorage) BatchPutArtifacts(ctx context.Context, artifacts []*models.Artifact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO ingest_artifact
		 (id, tenant_id, connector, source_type, channel_id, source_key, metadata, source_updated_at, created_at)
		 VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, a := range artifacts {
		metadataJSON, err := json.Marshal(a.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx, a.ID, a.TenantID, a.Connector, a.SourceType,
			a.ChannelID, a.SourceKey, string(metadataJSON), a.SourceUpdatedAt.UTC(), a.CreatedAt.UTC()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PutChunk inserts or replaces a chunk.
func (s *SQLiteStorage) PutChunk(ctx context.Context, c *models.Chunk) error {
	blockJSON, err := marshalBlockIDs(c.BlockIDs)
	if err != nil {
		return err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO chunks (id, tenant_id, document_id, content, block_ids, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.TenantID, c.DocumentID, c.Content, blockJSON, c.CreatedAt.UTC(),
	)
	return err
}

// BatchPutChunks inserts multiple chunks in a transaction.
func (s *SQLiteStorage) BatchPutChunks(ctx context.Context, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO chunks (id, tenant_id, document_id, content, block_ids, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, c := range chunks {
		blockJSON, err := marshalBlockIDs(c.BlockIDs)
		if err != nil {
			return err
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.TenantID, c.DocumentID, c.Content, blockJSON, c.CreatedAt.UTC()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetArtifact returns an artifact by id within a tenant.
func (s *SQLiteStorage) GetArtifact(ctx context.Context, tenantID, id string) (*models.Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, connector, source_type, channel_id, source_key, metadata, source_updated_at, created_at
		 FROM ingest_artifact WHERE tenant_id = ? AND id = ?`, tenantID, id,
	)
	return scanArtifact(row)
}

// GetArtifactBySourceKey returns the artifact with the given connector-native
// key (e.g. a Jira issue key) within a tenant.
func (s *SQLiteStorage) GetArtifactBySourceKey(ctx context.Context, tenantID, connector, sourceKey string) (*models.Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, connector, source_type, channel_id, source_key, metadata, source_updated_at, created_at
		 FROM ingest_artifact WHERE tenant_id = ? AND connector = ? AND source_key = ?
		 ORDER BY id LIMIT 1`, tenantID, connector, sourceKey,
	)
	return scanArtifact(row)
}

// ListMessageArtifacts returns message-type artifacts in the channel with
// source_updated_at in [from, to], ordered by source_updated_at then id.
// Bounds bind in UTC to match the stored representation.
func (s *SQLiteStorage) ListMessageArtifacts(ctx context.Context, tenantID, channelID string, from, to time.Time) ([]*models.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, connector, source_type, channel_id, source_key, metadata, source_updated_at, created_at
		 FROM ingest_artifact
		 WHERE tenant_id = ? AND source_type = 'message' AND channel_id = ?
		   AND source_updated_at BETWEEN ? AND ?
		 ORDER BY source_updated_at, id`,
		tenantID, channelID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []*models.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// ListDocumentChunks returns the citable chunks (block_ids present) of a
// document ordered by created_at ascending, then id for a stable order.
func (s *SQLiteStorage) ListDocumentChunks(ctx context.Context, tenantID, documentID string) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, document_id, content, block_ids, created_at
		 FROM chunks
		 WHERE tenant_id = ? AND document_id = ? AND block_ids IS NOT NULL
		 ORDER BY created_at, id`,
		tenantID, documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		var c models.Chunk
		var blockJSON sql.NullString
		if err := rows.Scan(&c.ID, &c.TenantID, &c.DocumentID, &c.Content, &blockJSON, &c.CreatedAt); err != nil {
			return nil, err
		}
		if blockJSON.Valid && blockJSON.String != "" {
			if err := json.Unmarshal([]byte(blockJSON.String), &c.BlockIDs); err != nil {
				return nil, fmt.Errorf("failed to unmarshal block ids: %w", err)
			}
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// CountArtifacts returns the total number of artifacts.
func (s *SQLiteStorage) CountArtifacts(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingest_artifact`).Scan(&count)
	return count, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArtifact(row rowScanner) (*models.Artifact, error) {
	var a models.Artifact
	var channelID, sourceKey, metadataJSON sql.NullString
	err := row.Scan(&a.ID, &a.TenantID, &a.Connector, &a.SourceType,
		&channelID, &sourceKey, &metadataJSON, &a.SourceUpdatedAt, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.ChannelID = channelID.String
	a.SourceKey = sourceKey.String
	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &a.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &a, nil
}

// marshalBlockIDs stores nil/empty block id lists as NULL so the chunk is
// excluded from the partial index and the resolution read path.
func marshalBlockIDs(ids []string) (interface{}, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal block ids: %w", err)
	}
	return string(b), nil
}
