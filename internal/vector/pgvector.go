package vector

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/scrypster/memgraph/internal/storage"
)

// pgSchema creates the embeddings table and its cosine-distance index. The
// dimension is fixed at table creation time and must match the embedding
// provider's output.
const pgSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS embeddings (
	id TEXT PRIMARY KEY,
	embedding vector(%d) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_embeddings_cosine
ON embeddings USING hnsw (embedding vector_cosine_ops);
`

// PgIndex is a pgvector-backed similarity index for PostgreSQL deployments.
type PgIndex struct {
	db        *sql.DB
	dimension int
}

// NewPgIndex connects to PostgreSQL, ensures the pgvector schema exists and
// returns the index. dimension must match the embedding provider's output.
func NewPgIndex(dsn string, dimension int) (*PgIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: vector dimension must be positive", storage.ErrInvalidInput)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf(pgSchema, dimension)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize pgvector schema: %w", err)
	}

	return &PgIndex{db: db, dimension: dimension}, nil
}

// Upsert stores a vector, replacing any existing entry for the ID.
func (idx *PgIndex) Upsert(ctx context.Context, id string, vector []float32) error {
	if id == "" {
		return fmt.Errorf("%w: vector ID is required", storage.ErrInvalidInput)
	}
	if len(vector) != idx.dimension {
		return fmt.Errorf("%w: vector has dimension %d, index expects %d",
			storage.ErrInvalidInput, len(vector), idx.dimension)
	}

	_, err := idx.db.ExecContext(ctx, `
		INSERT INTO embeddings (id, embedding, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			embedding = excluded.embedding,
			updated_at = CURRENT_TIMESTAMP
	`, id, pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

// Query returns the topK nearest vectors by cosine distance with similarity
// >= minScore. The <=> operator yields cosine distance; similarity is
// 1 - distance.
func (idx *PgIndex) Query(ctx context.Context, vector []float32, topK int, minScore float64) ([]Candidate, error) {
	if len(vector) != idx.dimension {
		return nil, fmt.Errorf("%w: query vector has dimension %d, index expects %d",
			storage.ErrInvalidInput, len(vector), idx.dimension)
	}
	if topK <= 0 {
		return nil, nil
	}

	rows, err := idx.db.QueryContext(ctx, `
		SELECT id, 1 - (embedding <=> $1) AS score
		FROM embeddings
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1 ASC, id ASC
		LIMIT $3
	`, pgvector.NewVector(vector), minScore, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.Score); err != nil {
			return nil, fmt.Errorf("failed to scan embedding candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// Delete removes a vector. Unknown IDs are ignored.
func (idx *PgIndex) Delete(ctx context.Context, id string) error {
	if _, err := idx.db.ExecContext(ctx, "DELETE FROM embeddings WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (idx *PgIndex) Close() error {
	return idx.db.Close()
}
