package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/memgraph/internal/storage"
	"github.com/scrypster/memgraph/pkg/types"
)

// FindOrCreate returns the concept with the given name, creating it when
// absent. The unique constraint on concepts.name makes this safe under
// concurrent workers: the insert uses ON CONFLICT DO NOTHING and the
// follow-up select returns whichever row won.
func (s *Store) FindOrCreate(ctx context.Context, name string, conceptType types.ConceptType, confidence float64) (*types.Concept, error) {
	concept := &types.Concept{
		ID:         "concept:" + uuid.NewString(),
		Name:       name,
		Type:       conceptType,
		Confidence: confidence,
	}
	if err := concept.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO concepts (id, name, type, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, concept.ID, concept.Name, concept.Type, concept.Confidence, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert concept: %w", err)
	}

	return s.getConceptByName(ctx, name)
}

// LinkToMemory attaches a concept to a memory. The composite primary key on
// memory_concepts makes repeated links a no-op.
func (s *Store) LinkToMemory(ctx context.Context, memoryID, conceptID string) error {
	if memoryID == "" || conceptID == "" {
		return fmt.Errorf("%w: memory ID and concept ID are required", storage.ErrInvalidInput)
	}

	exists, err := s.memoryExists(ctx, memoryID)
	if err != nil {
		return fmt.Errorf("failed to check memory %s: %w", memoryID, err)
	}
	if !exists {
		return fmt.Errorf("%w: memory %s", storage.ErrNotFound, memoryID)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO memory_concepts (memory_id, concept_id, created_at)
		VALUES (?, ?, ?)
	`, memoryID, conceptID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to link concept: %w", err)
	}
	return nil
}

// UnlinkAllFromMemory removes every concept link for the given memory.
func (s *Store) UnlinkAllFromMemory(ctx context.Context, memoryID string) error {
	if memoryID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM memory_concepts WHERE memory_id = ?", memoryID); err != nil {
		return fmt.Errorf("failed to unlink concepts: %w", err)
	}
	return nil
}

// ListForMemory returns the concepts attached to a memory, ordered by name.
func (s *Store) ListForMemory(ctx context.Context, memoryID string) ([]types.Concept, error) {
	if memoryID == "" {
		return nil, fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	query := `
		SELECT c.id, c.name, c.type, c.confidence, c.description, c.created_at, c.updated_at
		FROM concepts c
		JOIN memory_concepts mc ON c.id = mc.concept_id
		WHERE mc.memory_id = ?
		ORDER BY c.name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, memoryID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: ListForMemory: %w", err)
	}
	defer rows.Close()

	var concepts []types.Concept
	for rows.Next() {
		concept, err := scanConcept(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: ListForMemory scan: %w", err)
		}
		concepts = append(concepts, *concept)
	}
	return concepts, rows.Err()
}

// DistributionByType returns the number of concepts per concept type.
func (s *Store) DistributionByType(ctx context.Context) (map[types.ConceptType]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT type, COUNT(*) FROM concepts GROUP BY type")
	if err != nil {
		return nil, fmt.Errorf("sqlite: DistributionByType: %w", err)
	}
	defer rows.Close()

	dist := make(map[types.ConceptType]int)
	for rows.Next() {
		var conceptType string
		var count int
		if err := rows.Scan(&conceptType, &count); err != nil {
			return nil, fmt.Errorf("sqlite: DistributionByType scan: %w", err)
		}
		dist[types.ConceptType(conceptType)] = count
	}
	return dist, rows.Err()
}

// getConceptByName fetches a single concept by its unique name.
func (s *Store) getConceptByName(ctx context.Context, name string) (*types.Concept, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, confidence, description, created_at, updated_at
		FROM concepts WHERE name = ?
	`, name)

	concept, err := scanConcept(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get concept: %w", err)
	}
	return concept, nil
}

// scanConcept reads one concept row.
func scanConcept(row rowScanner) (*types.Concept, error) {
	var concept types.Concept
	var description sql.NullString

	err := row.Scan(
		&concept.ID,
		&concept.Name,
		&concept.Type,
		&concept.Confidence,
		&description,
		&concept.CreatedAt,
		&concept.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		concept.Description = description.String
	}
	return &concept, nil
}
