package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/seanblong/contextselect/internal/vector"
	"github.com/seanblong/contextselect/pkg/models"
)

// Store provides methods to interact with the database.
type Store struct {
	pool *pgxpool.Pool
}

// ChunkStore defines the methods that the Store must implement.
type ChunkStore interface {
	Migrate(ctx context.Context) error
	UpsertChunk(ctx context.Context, c models.Chunk, contentHash string) error
	GetChunkHash(ctx context.Context, documentID string, chunkIndex int) (string, bool, error)
	ListChunks(ctx context.Context, documentID string) ([]models.Chunk, error)
	ListDocuments(ctx context.Context) ([]string, error)
	TrimDocument(ctx context.Context, documentID string, fromIndex int) (int64, error)
}

// New creates a new Store instance connected to the given database URL.
func New(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &Store{pool: p}, nil
}

func (s *Store) Close() { s.pool.Close() }

// ListDocuments returns the distinct document ids in the database.
func (s *Store) ListDocuments(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT DISTINCT document_id FROM chunks ORDER BY document_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []string{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// Migrate applies necessary database migrations and schema setup.
func (s *Store) Migrate(ctx context.Context) error {
	q := `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS chunks (
  id             TEXT NOT NULL,
  document_id    TEXT NOT NULL,
  chunk_index    INT  NOT NULL,
  source         TEXT NOT NULL DEFAULT '',
  start_position INT  NOT NULL DEFAULT 0,
  end_position   INT  NOT NULL DEFAULT 0,
  section        TEXT,
  page           INT  NOT NULL DEFAULT 0,
  content        TEXT NOT NULL,
  content_hash   TEXT,
  tf_vec         vector(%d),
  created_at     TIMESTAMP WITH TIME ZONE DEFAULT now(),
  PRIMARY KEY (document_id, chunk_index)
);

-- chunk ids are only unique within a document; move older tables off an id key
DO $$
BEGIN
  IF EXISTS (
    SELECT 1 FROM pg_index i
    JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
    WHERE i.indrelid = 'chunks'::regclass AND i.indisprimary AND a.attname = 'id'
  ) THEN
    ALTER TABLE chunks DROP CONSTRAINT chunks_pkey;
    ALTER TABLE chunks ADD PRIMARY KEY (document_id, chunk_index);
  END IF;
END $$;

DROP INDEX IF EXISTS chunks_document_index_uidx;

CREATE INDEX IF NOT EXISTS chunks_id_idx
  ON chunks (id);

CREATE INDEX IF NOT EXISTS chunks_section_idx
  ON chunks (document_id, section);
`
	_, err := s.pool.Exec(ctx, fmt.Sprintf(q, vector.Dim))
	return err
}

// UpsertChunk inserts or replaces the chunk at its document position.
func (s *Store) UpsertChunk(ctx context.Context, c models.Chunk, contentHash string) error {
	var tv any
	if len(c.Vector) == vector.Dim {
		tv = pgvector.NewVector(c.Vector)
	} else {
		tv = (*pgvector.Vector)(nil)
	}

	var section any
	if c.Location.Section != "" {
		section = c.Location.Section
	}

	const q = `
		INSERT INTO chunks (
			id, document_id, chunk_index, source, start_position, end_position,
			section, page, content, content_hash, tf_vec, created_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, now()
		)
		ON CONFLICT (document_id, chunk_index) DO UPDATE SET
			id             = EXCLUDED.id,
			source         = EXCLUDED.source,
			start_position = EXCLUDED.start_position,
			end_position   = EXCLUDED.end_position,
			section        = EXCLUDED.section,
			page           = EXCLUDED.page,
			content        = EXCLUDED.content,
			content_hash   = EXCLUDED.content_hash,
			tf_vec         = COALESCE(EXCLUDED.tf_vec, chunks.tf_vec),
			created_at     = chunks.created_at;`

	_, err := s.pool.Exec(ctx, q,
		c.ID, c.DocumentID, c.Metadata.ChunkIndex, c.Metadata.Source,
		c.Metadata.StartPosition, c.Metadata.EndPosition,
		section, c.Location.Page, c.Content, contentHash, tv,
	)
	if err != nil {
		return fmt.Errorf("upsert chunk %s: %w", c.ID, err)
	}
	return nil
}

// ListChunks returns the chunks of one document in chunk order, or of every
// document when documentID is empty.
func (s *Store) ListChunks(ctx context.Context, documentID string) ([]models.Chunk, error) {
	q := `
		SELECT id, document_id, chunk_index, source, start_position, end_position,
		       COALESCE(section, ''), page, content, tf_vec, created_at
		FROM chunks`
	var args []any
	if documentID != "" {
		q += " WHERE document_id = $1"
		args = append(args, documentID)
	}
	q += " ORDER BY document_id, chunk_index"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Chunk{}
	for rows.Next() {
		var (
			c   models.Chunk
			vec *pgvector.Vector
		)
		if err := rows.Scan(
			&c.ID, &c.DocumentID, &c.Metadata.ChunkIndex, &c.Metadata.Source,
			&c.Metadata.StartPosition, &c.Metadata.EndPosition,
			&c.Location.Section, &c.Location.Page, &c.Content, &vec, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		if vec != nil {
			c.Vector = vec.Slice()
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TrimDocument deletes the chunks of documentID at or after fromIndex and
// returns how many rows were removed.
func (s *Store) TrimDocument(ctx context.Context, documentID string, fromIndex int) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM chunks WHERE document_id = $1 AND chunk_index >= $2`,
		documentID, fromIndex)
	if err != nil {
		return 0, fmt.Errorf("trim document %s: %w", documentID, err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks the database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// GetChunkHash returns the stored content hash of the chunk at a document
// position. The bool is false when no such chunk exists.
func (s *Store) GetChunkHash(ctx context.Context, documentID string, chunkIndex int) (string, bool, error) {
	const q = `
      SELECT COALESCE(content_hash, '')
      FROM chunks
      WHERE document_id = $1 AND chunk_index = $2
      LIMIT 1`
	var hash string
	err := s.pool.QueryRow(ctx, q, documentID, chunkIndex).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return hash, true, nil
}
