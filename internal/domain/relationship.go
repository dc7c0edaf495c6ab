package domain

import "time"

// RelationshipType is the kind of directed link between two nodes.
type RelationshipType string

const (
	RelRelatedTo      RelationshipType = "related_to"
	RelPrerequisiteOf RelationshipType = "prerequisite_of"
	RelExtends        RelationshipType = "extends"
	RelContradicts    RelationshipType = "contradicts"
	RelSimilarTo      RelationshipType = "similar_to"
	RelCaseStudyOf    RelationshipType = "case_study_of"
	RelImplements     RelationshipType = "implements"
	RelReferences     RelationshipType = "references"
	RelDependsOn      RelationshipType = "depends_on"
)

// ValidRelationshipType reports whether t is one of the nine edge types.
func ValidRelationshipType(t RelationshipType) bool {
	switch t {
	case RelRelatedTo, RelPrerequisiteOf, RelExtends, RelContradicts,
		RelSimilarTo, RelCaseStudyOf, RelImplements, RelReferences, RelDependsOn:
		return true
	}
	return false
}

// RelationshipStatus is the lifecycle state of an edge.
type RelationshipStatus string

const (
	RelStatusActive     RelationshipStatus = "active"
	RelStatusInactive   RelationshipStatus = "inactive"
	RelStatusDeprecated RelationshipStatus = "deprecated"
)

// RelationshipMetadata explains why an edge exists.
type RelationshipMetadata struct {
	Reasoning string   `json:"reasoning,omitempty"`
	Evidence  []string `json:"evidence,omitempty"`
}

// Relationship is a directed, typed edge between two nodes. Edges are
// first-class records rather than adjacency lists embedded in nodes, so they
// are queryable from either endpoint and their metadata evolves
// independently. A bidirectional edge is stored once but traversable both
// ways in queries.
type Relationship struct {
	ID            string               `json:"id"`
	SourceNodeID  string               `json:"sourceNodeId"`
	TargetNodeID  string               `json:"targetNodeId"`
	Type          RelationshipType     `json:"relationshipType"`
	Weight        float64              `json:"weight"`
	Confidence    int                  `json:"confidence"`
	Context       string               `json:"context,omitempty"`
	Bidirectional bool                 `json:"bidirectional"`
	Status        RelationshipStatus   `json:"status"`
	CreatedBy     string               `json:"createdBy,omitempty"`
	Metadata      RelationshipMetadata `json:"metadata"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}
