package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/scrypster/memgraph/internal/storage"
	"github.com/scrypster/memgraph/pkg/types"
)

// memoryColumns is the column list shared by every memory SELECT.
const memoryColumns = `
	id, content, content_hash, context, importance, status,
	access_count, last_accessed_at, vector_id,
	created_by, created_at, updated_at
`

// Create inserts a new memory row.
func (s *Store) Create(ctx context.Context, memory *types.Memory) error {
	if memory == nil {
		return storage.ErrInvalidInput
	}

	if err := memory.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = time.Now().UTC()
	}
	if memory.UpdatedAt.IsZero() {
		memory.UpdatedAt = memory.CreatedAt
	}
	if memory.Status == "" {
		memory.Status = types.StatusActive
	}
	if memory.ContentHash == "" {
		memory.ContentHash = types.HashContent(memory.Content)
	}

	contextJSON, err := marshalContext(memory.Context)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO memories (
			id, content, content_hash, context, importance, status,
			access_count, last_accessed_at, vector_id,
			created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		memory.ID,
		memory.Content,
		memory.ContentHash,
		nullableBytes(contextJSON),
		memory.Importance,
		memory.Status,
		memory.AccessCount,
		nullableTime(memory.LastAccessedAt),
		nullableString(memory.VectorID),
		nullableString(memory.CreatedBy),
		memory.CreatedAt,
		memory.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create memory: %w", err)
	}

	return nil
}

// Get retrieves a memory by ID. Merged memories remain readable by ID so the
// audit trail stays explorable.
func (s *Store) Get(ctx context.Context, id string) (*types.Memory, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	query := "SELECT " + memoryColumns + " FROM memories WHERE id = ?"

	memory, err := scanMemory(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}

	return memory, nil
}

// Find retrieves memories matching the filter, newest first, and the total
// match count before pagination.
func (s *Store) Find(ctx context.Context, filter storage.MemoryFilter) ([]types.Memory, int, error) {
	filter.Normalize()

	var conditions []string
	var args []interface{}

	if filter.ContentHash != "" {
		conditions = append(conditions, "content_hash = ?")
		args = append(args, filter.ContentHash)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, "created_by = ?")
		args = append(args, filter.CreatedBy)
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := "SELECT " + memoryColumns + " FROM memories" + whereClause +
		" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"

	rows, err := s.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find memories: %w", err)
	}
	defer rows.Close()

	var memories []types.Memory
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan memory: %w", err)
		}
		memories = append(memories, *memory)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating memories: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM memories" + whereClause
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count memories: %w", err)
	}

	return memories, total, nil
}

// Update modifies an existing memory and refreshes updated_at. Transitions
// into StatusMerged are rejected; only the merge transaction marks memories
// merged. A memory that is already merged is frozen and rejects updates.
func (s *Store) Update(ctx context.Context, memory *types.Memory) error {
	if memory == nil {
		return storage.ErrInvalidInput
	}
	if memory.ID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}
	if err := memory.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	if memory.Status == types.StatusMerged {
		return fmt.Errorf("%w: status %q can only be set by a merge", storage.ErrInvalidInput, types.StatusMerged)
	}

	current, err := s.Get(ctx, memory.ID)
	if err != nil {
		return err
	}
	if current.Status == types.StatusMerged {
		return fmt.Errorf("%w: memory %s is merged and frozen", storage.ErrConflict, memory.ID)
	}

	memory.ContentHash = types.HashContent(memory.Content)
	memory.UpdatedAt = time.Now().UTC()

	contextJSON, err := marshalContext(memory.Context)
	if err != nil {
		return err
	}

	query := `
		UPDATE memories
		SET content = ?, content_hash = ?, context = ?, importance = ?,
		    status = ?, vector_id = ?, updated_at = ?
		WHERE id = ? AND status != ?
	`

	result, err := s.db.ExecContext(ctx, query,
		memory.Content,
		memory.ContentHash,
		nullableBytes(contextJSON),
		memory.Importance,
		memory.Status,
		nullableString(memory.VectorID),
		memory.UpdatedAt,
		memory.ID,
		types.StatusMerged,
	)
	if err != nil {
		return fmt.Errorf("failed to update memory: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Row existed a moment ago; a concurrent merge must have claimed it.
		return fmt.Errorf("%w: memory %s was merged concurrently", storage.ErrConflict, memory.ID)
	}

	return nil
}

// Delete hard-deletes a memory together with its relationships and concept
// links in a single transaction. Memories recorded as the surviving primary
// of a merge audit are refused with ErrConflict: removing them would strip
// the audit trail of its referent.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	var auditCount int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM merge_audits WHERE primary_memory_id = ?", id).Scan(&auditCount)
	if err != nil {
		return fmt.Errorf("failed to check merge audits: %w", err)
	}
	if auditCount > 0 {
		return fmt.Errorf("%w: memory %s is the surviving primary of %d merge audit(s)",
			storage.ErrConflict, id, auditCount)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM relationships WHERE source_id = ? OR target_id = ?", id, id); err != nil {
		return fmt.Errorf("failed to delete relationships: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM memory_concepts WHERE memory_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete concept links: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	return nil
}

// SetVectorID records the external vector index handle for a memory.
func (s *Store) SetVectorID(ctx context.Context, id, vectorID string) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE memories SET vector_id = ?, updated_at = ? WHERE id = ?",
		nullableString(vectorID), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set vector ID: %w", err)
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

// IncrementAccessCount atomically increments access_count and sets
// last_accessed_at to the current UTC time for the given memory ID.
func (s *Store) IncrementAccessCount(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE memories SET access_count = access_count + 1, last_accessed_at = ? WHERE id = ?",
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to increment access count: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// ListUnindexed returns up to limit active memories without a vector index
// handle, oldest first so the indexer drains backlog in creation order.
func (s *Store) ListUnindexed(ctx context.Context, limit int) ([]types.Memory, error) {
	if limit < 1 {
		limit = 50
	}

	query := "SELECT " + memoryColumns + ` FROM memories
		WHERE vector_id IS NULL AND status = ?
		ORDER BY created_at ASC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, types.StatusActive, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: ListUnindexed: %w", err)
	}
	defer rows.Close()

	var memories []types.Memory
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: ListUnindexed scan: %w", err)
		}
		memories = append(memories, *memory)
	}
	return memories, rows.Err()
}

// CountByStatus returns the number of memories per lifecycle status.
func (s *Store) CountByStatus(ctx context.Context) (map[types.MemoryStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM memories GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("sqlite: CountByStatus: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.MemoryStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("sqlite: CountByStatus scan: %w", err)
		}
		counts[types.MemoryStatus(status)] = count
	}
	return counts, rows.Err()
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanMemory reads one memory row using the memoryColumns order.
func scanMemory(row rowScanner) (*types.Memory, error) {
	var memory types.Memory
	var contextJSON, vectorID, createdBy sql.NullString
	var lastAccessedAt sql.NullTime

	err := row.Scan(
		&memory.ID,
		&memory.Content,
		&memory.ContentHash,
		&contextJSON,
		&memory.Importance,
		&memory.Status,
		&memory.AccessCount,
		&lastAccessedAt,
		&vectorID,
		&createdBy,
		&memory.CreatedAt,
		&memory.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if contextJSON.Valid && contextJSON.String != "" {
		if err := json.Unmarshal([]byte(contextJSON.String), &memory.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal context: %w", err)
		}
	}
	if lastAccessedAt.Valid {
		t := lastAccessedAt.Time
		memory.LastAccessedAt = &t
	}
	if vectorID.Valid {
		memory.VectorID = vectorID.String
	}
	if createdBy.Valid {
		memory.CreatedBy = createdBy.String
	}

	return &memory, nil
}

// marshalContext serialises the context map, returning nil bytes for empty maps.
func marshalContext(context map[string]string) ([]byte, error) {
	if len(context) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(context)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal context: %w", err)
	}
	return data, nil
}
