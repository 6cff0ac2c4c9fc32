package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/memgraph/internal/storage"
	"github.com/scrypster/memgraph/pkg/types"
)

// ApplyMerge executes a merge plan as a single transaction. The sequence is:
//
//  1. Claim every input memory with a status-guarded UPDATE. The guard is the
//     concurrency control: if two merges race over overlapping inputs, the
//     loser's UPDATE affects fewer rows than expected and the whole
//     transaction rolls back with ErrConflict.
//  2. Insert the consolidated memory.
//  3. Link its concept set.
//  4. Rewire every relationship touching an input to the new memory and
//     delete the originals. Edges that would collapse into self-loops
//     (both endpoints were inputs) are dropped; rewired duplicates of the
//     same (source, target, type) keep the strongest edge.
//  5. Append the audit row.
//
// Any failure rolls the transaction back; no partial merge is ever visible.
func (s *Store) ApplyMerge(ctx context.Context, plan storage.MergePlan) (*types.Memory, *types.MergeAudit, error) {
	if plan.NewMemory == nil {
		return nil, nil, fmt.Errorf("%w: merge plan has no consolidated memory", storage.ErrInvalidInput)
	}
	if len(plan.InputIDs) < 2 {
		return nil, nil, fmt.Errorf("%w: at least two memories required", storage.ErrInvalidInput)
	}
	if !types.IsValidMergeStrategy(plan.Strategy) {
		return nil, nil, fmt.Errorf("%w: invalid merge strategy: %s", storage.ErrInvalidInput, plan.Strategy)
	}
	if err := plan.NewMemory.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin merge transaction: %w", err)
	}
	defer tx.Rollback()

	// Step 1: claim the inputs.
	if err := s.claimInputs(ctx, tx, plan.InputIDs, now); err != nil {
		return nil, nil, err
	}

	// Step 2: insert the consolidated memory.
	newMem := plan.NewMemory
	newMem.Status = types.StatusActive
	newMem.CreatedAt = now
	newMem.UpdatedAt = now
	if newMem.ContentHash == "" {
		newMem.ContentHash = types.HashContent(newMem.Content)
	}

	contextJSON, err := marshalContext(newMem.Context)
	if err != nil {
		return nil, nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO memories (id, content, content_hash, context, importance, status, access_count, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
	`,
		newMem.ID, newMem.Content, newMem.ContentHash, nullableBytes(contextJSON),
		newMem.Importance, newMem.Status, nullableString(newMem.CreatedBy),
		newMem.CreatedAt, newMem.UpdatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert merged memory: %w", err)
	}

	// Step 3: attach the concept union.
	for _, conceptID := range plan.ConceptIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO memory_concepts (memory_id, concept_id, created_at)
			VALUES (?, ?, ?)
		`, newMem.ID, conceptID, now); err != nil {
			return nil, nil, fmt.Errorf("failed to link merged concepts: %w", err)
		}
	}

	// Step 4: rewire relationships.
	if err := s.rewireRelationships(ctx, tx, plan.InputIDs, newMem.ID, now); err != nil {
		return nil, nil, err
	}

	// Step 5: append the audit row.
	audit := &types.MergeAudit{
		ID:              "audit:" + uuid.NewString(),
		PrimaryMemoryID: newMem.ID,
		MergedMemoryIDs: plan.InputIDs,
		Strategy:        plan.Strategy,
		CreatedBy:       plan.CreatedBy,
		CreatedAt:       now,
	}

	mergedJSON, err := json.Marshal(audit.MergedMemoryIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal merged IDs: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO merge_audits (id, primary_memory_id, merged_memory_ids, strategy, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, audit.ID, audit.PrimaryMemoryID, string(mergedJSON), audit.Strategy,
		nullableString(audit.CreatedBy), audit.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to write merge audit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit merge: %w", err)
	}

	return newMem, audit, nil
}

// claimInputs marks every input memory merged, failing with ErrNotFound when
// an input is missing and ErrConflict when one was already merged (e.g. by a
// concurrent merge that committed first).
func (s *Store) claimInputs(ctx context.Context, tx *sql.Tx, inputIDs []string, now time.Time) error {
	inClause := buildInClause(len(inputIDs))
	args := make([]interface{}, 0, len(inputIDs)+2)
	args = append(args, types.StatusMerged, now)
	for _, id := range inputIDs {
		args = append(args, id)
	}
	args = append(args, types.StatusMerged)

	result, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE memories SET status = ?, updated_at = ?
		WHERE id IN (%s) AND status != ?
	`, inClause), args...)
	if err != nil {
		return fmt.Errorf("failed to claim merge inputs: %w", err)
	}

	claimed, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check claimed rows: %w", err)
	}
	if int(claimed) == len(inputIDs) {
		return nil
	}

	// Distinguish missing inputs from concurrently merged ones.
	countArgs := make([]interface{}, len(inputIDs))
	for i, id := range inputIDs {
		countArgs[i] = id
	}
	var existing int
	if err := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM memories WHERE id IN (%s)", inClause),
		countArgs...).Scan(&existing); err != nil {
		return fmt.Errorf("failed to count merge inputs: %w", err)
	}

	if existing < len(inputIDs) {
		return fmt.Errorf("%w: %d of %d merge inputs do not exist",
			storage.ErrNotFound, len(inputIDs)-existing, len(inputIDs))
	}
	return fmt.Errorf("%w: %d merge input(s) already merged",
		storage.ErrConflict, len(inputIDs)-int(claimed))
}

// rewireRelationships replaces input endpoints on every edge touching an
// input memory with the new memory ID, inserts the rewired edges, and deletes
// the originals.
func (s *Store) rewireRelationships(ctx context.Context, tx *sql.Tx, inputIDs []string, newMemoryID string, now time.Time) error {
	inputSet := make(map[string]bool, len(inputIDs))
	for _, id := range inputIDs {
		inputSet[id] = true
	}

	inClause := buildInClause(len(inputIDs))
	args := make([]interface{}, 0, len(inputIDs)*2)
	for _, id := range inputIDs {
		args = append(args, id)
	}
	for _, id := range inputIDs {
		args = append(args, id)
	}

	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, source_id, target_id, type, strength, bidirectional, metadata, created_at
		FROM relationships
		WHERE source_id IN (%s) OR target_id IN (%s)
		ORDER BY created_at ASC, id ASC
	`, inClause, inClause), args...)
	if err != nil {
		return fmt.Errorf("failed to load relationships for rewiring: %w", err)
	}

	type edge struct {
		id, source, target, relType string
		strength                    float64
		bidirectional               bool
		metadata                    sql.NullString
	}

	var originals []edge
	for rows.Next() {
		var e edge
		var createdAt time.Time
		if err := rows.Scan(&e.id, &e.source, &e.target, &e.relType,
			&e.strength, &e.bidirectional, &e.metadata, &createdAt); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan relationship for rewiring: %w", err)
		}
		originals = append(originals, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("error iterating relationships for rewiring: %w", err)
	}
	rows.Close()

	// Deduplicate rewired edges by (source, target, type), keeping the
	// strongest. Edges collapsing into self-loops are dropped.
	type rewired struct {
		edge
	}
	kept := make(map[string]rewired)
	var order []string

	for _, e := range originals {
		source, target := e.source, e.target
		if inputSet[source] {
			source = newMemoryID
		}
		if inputSet[target] {
			target = newMemoryID
		}
		if source == target {
			continue
		}

		key := source + "\x00" + target + "\x00" + e.relType
		if existing, ok := kept[key]; ok {
			if e.strength > existing.strength {
				e.source, e.target = source, target
				kept[key] = rewired{e}
			}
			continue
		}
		e.source, e.target = source, target
		kept[key] = rewired{e}
		order = append(order, key)
	}

	for _, key := range order {
		e := kept[key]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO relationships (id, source_id, target_id, type, strength, bidirectional, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, "rel:"+uuid.NewString(), e.source, e.target, e.relType,
			e.strength, e.bidirectional, e.metadata, now); err != nil {
			return fmt.Errorf("failed to insert rewired relationship: %w", err)
		}
	}

	if len(originals) > 0 {
		delArgs := make([]interface{}, len(originals))
		for i, e := range originals {
			delArgs[i] = e.id
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM relationships WHERE id IN (%s)", buildInClause(len(originals))),
			delArgs...); err != nil {
			return fmt.Errorf("failed to delete original relationships: %w", err)
		}
	}

	return nil
}

// GetAudit retrieves a merge audit record by ID.
func (s *Store) GetAudit(ctx context.Context, id string) (*types.MergeAudit, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: audit ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, primary_memory_id, merged_memory_ids, strategy, created_by, created_at
		FROM merge_audits WHERE id = ?
	`, id)

	audit, err := scanAudit(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merge audit: %w", err)
	}
	return audit, nil
}

// ListAuditsForMemory returns audits referencing the memory as primary or as
// a merged-away input, newest first.
func (s *Store) ListAuditsForMemory(ctx context.Context, memoryID string) ([]types.MergeAudit, error) {
	if memoryID == "" {
		return nil, fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	// merged_memory_ids is a JSON array of quoted IDs; a LIKE match on the
	// quoted form avoids false prefix hits.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, primary_memory_id, merged_memory_ids, strategy, created_by, created_at
		FROM merge_audits
		WHERE primary_memory_id = ? OR merged_memory_ids LIKE ?
		ORDER BY created_at DESC, id DESC
	`, memoryID, `%"`+memoryID+`"%`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: ListAuditsForMemory: %w", err)
	}
	defer rows.Close()

	var audits []types.MergeAudit
	for rows.Next() {
		audit, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: ListAuditsForMemory scan: %w", err)
		}
		audits = append(audits, *audit)
	}
	return audits, rows.Err()
}

// CountAudits returns the total number of merge audit rows.
func (s *Store) CountAudits(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM merge_audits").Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: CountAudits: %w", err)
	}
	return count, nil
}

// CountRelationships returns the total number of relationship rows.
func (s *Store) CountRelationships(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM relationships").Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: CountRelationships: %w", err)
	}
	return count, nil
}

// scanAudit reads one merge audit row.
func scanAudit(row rowScanner) (*types.MergeAudit, error) {
	var audit types.MergeAudit
	var mergedJSON string
	var createdBy sql.NullString

	err := row.Scan(
		&audit.ID,
		&audit.PrimaryMemoryID,
		&mergedJSON,
		&audit.Strategy,
		&createdBy,
		&audit.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(mergedJSON), &audit.MergedMemoryIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal merged IDs: %w", err)
	}
	if createdBy.Valid {
		audit.CreatedBy = createdBy.String
	}
	return &audit, nil
}

// buildInClause returns a comma-separated string of n "?" placeholders.
func buildInClause(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
