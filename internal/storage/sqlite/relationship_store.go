package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/memgraph/internal/storage"
	"github.com/scrypster/memgraph/pkg/types"
)

// CreateRelationship inserts a new edge after verifying both endpoints exist.
func (s *Store) CreateRelationship(ctx context.Context, rel *types.Relationship) error {
	if rel == nil {
		return storage.ErrInvalidInput
	}

	if rel.ID == "" {
		rel.ID = "rel:" + uuid.NewString()
	}
	if err := rel.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}

	for _, endpoint := range []string{rel.SourceID, rel.TargetID} {
		exists, err := s.memoryExists(ctx, endpoint)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: memory %s", storage.ErrNotFound, endpoint)
		}
	}

	metadataJSON, err := marshalRelMetadata(rel.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relationships (id, source_id, target_id, type, strength, bidirectional, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rel.ID,
		rel.SourceID,
		rel.TargetID,
		rel.Type,
		rel.Strength,
		rel.Bidirectional,
		nullableBytes(metadataJSON),
		rel.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create relationship: %w", err)
	}

	return nil
}

// RelationshipsForMemory returns all edges where the memory is source or
// target, strongest first then oldest first. The secondary ordering keys make
// traversal tie-breaking deterministic.
func (s *Store) RelationshipsForMemory(ctx context.Context, memoryID string) ([]types.Relationship, error) {
	if memoryID == "" {
		return nil, fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	query := `
		SELECT id, source_id, target_id, type, strength, bidirectional, metadata, created_at
		FROM relationships
		WHERE source_id = ? OR target_id = ?
		ORDER BY strength DESC, created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, memoryID, memoryID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: RelationshipsForMemory: %w", err)
	}
	defer rows.Close()

	var rels []types.Relationship
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: RelationshipsForMemory scan: %w", err)
		}
		rels = append(rels, *rel)
	}
	return rels, rows.Err()
}

// DeleteRelationship removes an edge by ID.
func (s *Store) DeleteRelationship(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: relationship ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM relationships WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// memoryExists checks if a memory row with the given ID exists.
func (s *Store) memoryExists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM memories WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return count > 0, nil
}

// scanRelationship reads one relationship row.
func scanRelationship(row rowScanner) (*types.Relationship, error) {
	var rel types.Relationship
	var metadataJSON sql.NullString

	err := row.Scan(
		&rel.ID,
		&rel.SourceID,
		&rel.TargetID,
		&rel.Type,
		&rel.Strength,
		&rel.Bidirectional,
		&metadataJSON,
		&rel.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &rel.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &rel, nil
}

// marshalRelMetadata serialises relationship metadata, nil for empty maps.
func marshalRelMetadata(metadata map[string]string) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return data, nil
}
