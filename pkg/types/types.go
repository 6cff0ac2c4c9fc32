// Package types defines the core data structures for the memgraph memory
// system: memories, concepts, relationships, and merge audit records.
package types

// MemoryStatus represents the lifecycle status of a memory.
type MemoryStatus string

// Memory lifecycle status constants.
const (
	// StatusActive indicates a normal, searchable memory.
	StatusActive MemoryStatus = "active"

	// StatusArchived indicates a memory excluded from default search but
	// retained. Archiving is reversible.
	StatusArchived MemoryStatus = "archived"

	// StatusMerged indicates a memory superseded by a merge. Terminal:
	// content is frozen and the memory never surfaces in search or
	// traversal results, but remains readable by ID for audit purposes.
	StatusMerged MemoryStatus = "merged"
)

// ValidMemoryStatuses lists all valid memory statuses for validation.
var ValidMemoryStatuses = []MemoryStatus{
	StatusActive,
	StatusArchived,
	StatusMerged,
}

// IsValidMemoryStatus checks if the given status is valid.
func IsValidMemoryStatus(status MemoryStatus) bool {
	for _, s := range ValidMemoryStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ConceptType classifies a concept in the registry.
type ConceptType string

// Concept type constants.
const (
	ConceptTypeEntity  ConceptType = "entity"
	ConceptTypeTopic   ConceptType = "topic"
	ConceptTypeSkill   ConceptType = "skill"
	ConceptTypeProject ConceptType = "project"
	ConceptTypePerson  ConceptType = "person"
	ConceptTypeCustom  ConceptType = "custom"
)

// ValidConceptTypes lists all valid concept types for validation.
var ValidConceptTypes = []ConceptType{
	ConceptTypeEntity,
	ConceptTypeTopic,
	ConceptTypeSkill,
	ConceptTypeProject,
	ConceptTypePerson,
	ConceptTypeCustom,
}

// IsValidConceptType checks if the given concept type is valid.
func IsValidConceptType(t ConceptType) bool {
	for _, valid := range ValidConceptTypes {
		if valid == t {
			return true
		}
	}
	return false
}

// MergeStrategy selects how a merge consolidates its input memories.
type MergeStrategy string

// Merge strategy constants.
const (
	// StrategyCombine unions all source contents (primary first) as
	// separate blocks, unions concepts, and takes the maximum importance.
	StrategyCombine MergeStrategy = "combine"

	// StrategyReplace keeps the primary's content and importance; the
	// secondaries contribute only their relationships.
	StrategyReplace MergeStrategy = "replace"

	// StrategyAppend concatenates source contents in input order with a
	// caller-supplied separator, unions concepts, and takes the maximum
	// importance.
	StrategyAppend MergeStrategy = "append"
)

// ValidMergeStrategies lists all supported merge strategies.
var ValidMergeStrategies = []MergeStrategy{
	StrategyCombine,
	StrategyReplace,
	StrategyAppend,
}

// IsValidMergeStrategy checks if the given strategy is supported.
func IsValidMergeStrategy(s MergeStrategy) bool {
	for _, valid := range ValidMergeStrategies {
		if valid == s {
			return true
		}
	}
	return false
}

// Relationship type constants. The type column is free-form; these are the
// closed-vocabulary values the UI and importers use.
const (
	RelRelatesTo  = "relates_to"
	RelBuildsUpon = "builds_upon"
	RelBlocks     = "blocks"
	RelContradicts = "contradicts"
	RelSupersedes = "supersedes"
	RelReferences = "references"
)

// Importance bounds for memories.
const (
	MinImportance = 1
	MaxImportance = 5

	// DefaultImportance is assigned when a caller does not specify one.
	DefaultImportance = 3
)

// IsValidImportance checks that an importance value is within bounds.
func IsValidImportance(importance int) bool {
	return importance >= MinImportance && importance <= MaxImportance
}
