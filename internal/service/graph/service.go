// Package graph provides business logic for the typed relationship graph:
// edge lifecycle, neighborhood queries, breadth-first path search and
// graph-wide statistics.
package graph

import (
	"context"
	"sort"
	"time"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/repository"
	appErrors "kgraph-backend/pkg/errors"

	"github.com/google/uuid"
)

const (
	defaultWeight     = 0.5
	defaultConfidence = 50
	// DefaultMaxDepth bounds path search when the caller does not set one.
	DefaultMaxDepth = 5
	// DefaultSimilarLimit bounds similarity lookups when no limit is given.
	DefaultSimilarLimit = 5
	// DefaultDependentLimit bounds dependency lookups when no limit is given.
	DefaultDependentLimit = 10
)

// CreateRelationshipInput carries the caller-supplied fields for a new edge.
// Nil Weight/Confidence fall back to the defaults (0.5, 50).
type CreateRelationshipInput struct {
	SourceNodeID  string
	TargetNodeID  string
	Type          domain.RelationshipType
	Weight        *float64
	Confidence    *int
	Context       string
	Bidirectional bool
	CreatedBy     string
	Metadata      domain.RelationshipMetadata
}

// UpdateRelationshipInput carries the editable fields of an edge.
type UpdateRelationshipInput struct {
	Weight     *float64
	Confidence *int
	Context    *string
	Status     *domain.RelationshipStatus
	Metadata   *domain.RelationshipMetadata
}

// PathResult is the outcome of a breadth-first path search. Path holds the
// node IDs from source to target inclusive when Found.
type PathResult struct {
	Found  bool     `json:"found"`
	Path   []string `json:"path,omitempty"`
	Length int      `json:"length"`
}

// Stats summarizes the whole relationship graph.
type Stats struct {
	TotalEdges        int                               `json:"totalEdges"`
	ByType            map[domain.RelationshipType]int   `json:"byType"`
	ByStatus          map[domain.RelationshipStatus]int `json:"byStatus"`
	AverageWeight     float64                           `json:"averageWeight"`
	AverageConfidence float64                           `json:"averageConfidence"`
	Bidirectional     int                               `json:"bidirectional"`
}

// Service defines the interface for relationship graph operations.
type Service interface {
	// CreateRelationship links two existing nodes with a typed, weighted
	// edge. Self-loops are rejected.
	CreateRelationship(ctx context.Context, input CreateRelationshipInput) (*domain.Relationship, error)
	GetRelationship(ctx context.Context, id string) (*domain.Relationship, error)
	UpdateRelationship(ctx context.Context, id string, input UpdateRelationshipInput) (*domain.Relationship, error)
	// Deactivate retires an edge without deleting it.
	Deactivate(ctx context.Context, id string) (*domain.Relationship, error)

	// Outgoing returns active edges originating at the node, strongest first.
	Outgoing(ctx context.Context, nodeID string) ([]*domain.Relationship, error)
	// Incoming returns active edges pointing at the node, strongest first.
	Incoming(ctx context.Context, nodeID string) ([]*domain.Relationship, error)

	// FindPath searches breadth-first for a path from source to target over
	// active edges. Edges are followed source-to-target; bidirectional edges
	// are followed both ways. maxDepth <= 0 uses DefaultMaxDepth.
	FindPath(ctx context.Context, sourceID, targetID string, maxDepth int) (*PathResult, error)
	// SimilarNodes returns nodes joined to the given node by similar_to
	// edges in either direction, highest confidence first. limit <= 0
	// uses DefaultSimilarLimit.
	SimilarNodes(ctx context.Context, nodeID string, limit int) ([]*domain.Node, error)
	// DependentNodes returns nodes that list the given node as a
	// prerequisite, strongest dependency first. limit <= 0 uses
	// DefaultDependentLimit.
	DependentNodes(ctx context.Context, nodeID string, limit int) ([]*domain.Node, error)

	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	repo repository.Repository
}

// NewService creates a new graph service with the provided repository.
func NewService(repo repository.Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateRelationship(ctx context.Context, input CreateRelationshipInput) (*domain.Relationship, error) {
	if !domain.ValidRelationshipType(input.Type) {
		return nil, appErrors.NewValidation("unknown relationship type: " + string(input.Type))
	}
	if input.SourceNodeID == input.TargetNodeID {
		return nil, appErrors.NewValidation("relationship cannot link a node to itself")
	}
	weight := defaultWeight
	if input.Weight != nil {
		weight = *input.Weight
	}
	if weight < 0 || weight > 1 {
		return nil, appErrors.NewValidation("relationship weight must be between 0 and 1")
	}
	confidence := defaultConfidence
	if input.Confidence != nil {
		confidence = *input.Confidence
	}
	if confidence < 0 || confidence > 100 {
		return nil, appErrors.NewValidation("relationship confidence must be between 0 and 100")
	}
	if err := s.requireNode(ctx, input.SourceNodeID); err != nil {
		return nil, err
	}
	if err := s.requireNode(ctx, input.TargetNodeID); err != nil {
		return nil, err
	}

	now := time.Now()
	rel := &domain.Relationship{
		ID:            uuid.New().String(),
		SourceNodeID:  input.SourceNodeID,
		TargetNodeID:  input.TargetNodeID,
		Type:          input.Type,
		Weight:        weight,
		Confidence:    confidence,
		Context:       input.Context,
		Bidirectional: input.Bidirectional,
		Status:        domain.RelStatusActive,
		CreatedBy:     input.CreatedBy,
		Metadata:      input.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateRelationship(ctx, rel); err != nil {
		return nil, appErrors.Wrap(err, "failed to create relationship")
	}
	return rel, nil
}

func (s *service) GetRelationship(ctx context.Context, id string) (*domain.Relationship, error) {
	rel, err := s.repo.FindRelationshipByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to fetch relationship")
	}
	if rel == nil {
		return nil, appErrors.NewNotFound("relationship not found: " + id)
	}
	return rel, nil
}

func (s *service) UpdateRelationship(ctx context.Context, id string, input UpdateRelationshipInput) (*domain.Relationship, error) {
	rel, err := s.GetRelationship(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Weight != nil {
		if *input.Weight < 0 || *input.Weight > 1 {
			return nil, appErrors.NewValidation("relationship weight must be between 0 and 1")
		}
		rel.Weight = *input.Weight
	}
	if input.Confidence != nil {
		if *input.Confidence < 0 || *input.Confidence > 100 {
			return nil, appErrors.NewValidation("relationship confidence must be between 0 and 100")
		}
		rel.Confidence = *input.Confidence
	}
	if input.Context != nil {
		rel.Context = *input.Context
	}
	if input.Status != nil {
		switch *input.Status {
		case domain.RelStatusActive, domain.RelStatusInactive, domain.RelStatusDeprecated:
		default:
			return nil, appErrors.NewValidation("unknown relationship status: " + string(*input.Status))
		}
		rel.Status = *input.Status
	}
	if input.Metadata != nil {
		rel.Metadata = *input.Metadata
	}
	rel.UpdatedAt = time.Now()
	if err := s.repo.UpdateRelationship(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

func (s *service) Deactivate(ctx context.Context, id string) (*domain.Relationship, error) {
	status := domain.RelStatusInactive
	return s.UpdateRelationship(ctx, id, UpdateRelationshipInput{Status: &status})
}

func (s *service) Outgoing(ctx context.Context, nodeID string) ([]*domain.Relationship, error) {
	return s.repo.FindRelationships(ctx, repository.RelationshipQuery{
		SourceNodeID: nodeID,
		Status:       domain.RelStatusActive,
	})
}

func (s *service) Incoming(ctx context.Context, nodeID string) ([]*domain.Relationship, error) {
	return s.repo.FindRelationships(ctx, repository.RelationshipQuery{
		TargetNodeID: nodeID,
		Status:       domain.RelStatusActive,
	})
}

// FindPath runs a breadth-first search bounded by maxDepth edges. The
// frontier expands one query per node, so the cost is proportional to the
// visited neighborhood rather than the whole graph.
func (s *service) FindPath(ctx context.Context, sourceID, targetID string, maxDepth int) (*PathResult, error) {
	if sourceID == targetID {
		return &PathResult{Found: true, Path: []string{sourceID}, Length: 0}, nil
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if err := s.requireNode(ctx, sourceID); err != nil {
		return nil, err
	}
	if err := s.requireNode(ctx, targetID); err != nil {
		return nil, err
	}

	type frontierEntry struct {
		nodeID string
		depth  int
	}
	parent := map[string]string{sourceID: ""}
	queue := []frontierEntry{{nodeID: sourceID, depth: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= maxDepth {
			continue
		}
		neighbors, err := s.neighbors(ctx, current.nodeID)
		if err != nil {
			return nil, err
		}
		for _, next := range neighbors {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = current.nodeID
			if next == targetID {
				return &PathResult{Found: true, Path: rebuildPath(parent, targetID), Length: current.depth + 1}, nil
			}
			queue = append(queue, frontierEntry{nodeID: next, depth: current.depth + 1})
		}
	}
	return &PathResult{Found: false}, nil
}

// neighbors returns the node IDs reachable in one hop over active edges:
// targets of outgoing edges, plus sources of incoming bidirectional edges.
func (s *service) neighbors(ctx context.Context, nodeID string) ([]string, error) {
	edges, err := s.repo.FindRelationships(ctx, repository.RelationshipQuery{
		EitherNodeID: nodeID,
		Status:       domain.RelStatusActive,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to expand graph frontier")
	}
	var out []string
	for _, edge := range edges {
		switch {
		case edge.SourceNodeID == nodeID:
			out = append(out, edge.TargetNodeID)
		case edge.Bidirectional:
			out = append(out, edge.SourceNodeID)
		}
	}
	return out, nil
}

func rebuildPath(parent map[string]string, targetID string) []string {
	var reversed []string
	for id := targetID; id != ""; id = parent[id] {
		reversed = append(reversed, id)
	}
	path := make([]string, len(reversed))
	for i, id := range reversed {
		path[len(reversed)-1-i] = id
	}
	return path
}

func (s *service) SimilarNodes(ctx context.Context, nodeID string, limit int) ([]*domain.Node, error) {
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}
	if err := s.requireNode(ctx, nodeID); err != nil {
		return nil, err
	}
	edges, err := s.repo.FindRelationships(ctx, repository.RelationshipQuery{
		EitherNodeID: nodeID,
		Type:         domain.RelSimilarTo,
		Status:       domain.RelStatusActive,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to query similarity edges")
	}
	// Repo ordering is weight-first; similarity strength lives in
	// confidence, so reorder here.
	sortByConfidence(edges)
	if len(edges) > limit {
		edges = edges[:limit]
	}
	var ids []string
	for _, edge := range edges {
		if edge.SourceNodeID == nodeID {
			ids = append(ids, edge.TargetNodeID)
		} else {
			ids = append(ids, edge.SourceNodeID)
		}
	}
	return s.repo.FindNodesByIDs(ctx, ids)
}

func (s *service) DependentNodes(ctx context.Context, nodeID string, limit int) ([]*domain.Node, error) {
	if limit <= 0 {
		limit = DefaultDependentLimit
	}
	if err := s.requireNode(ctx, nodeID); err != nil {
		return nil, err
	}
	edges, err := s.repo.FindRelationships(ctx, repository.RelationshipQuery{
		SourceNodeID: nodeID,
		Type:         domain.RelPrerequisiteOf,
		Status:       domain.RelStatusActive,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to query dependency edges")
	}
	if len(edges) > limit {
		edges = edges[:limit]
	}
	var ids []string
	for _, edge := range edges {
		ids = append(ids, edge.TargetNodeID)
	}
	return s.repo.FindNodesByIDs(ctx, ids)
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	edges, err := s.repo.AllRelationships(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to load relationship graph")
	}
	stats := &Stats{
		TotalEdges: len(edges),
		ByType:     make(map[domain.RelationshipType]int),
		ByStatus:   make(map[domain.RelationshipStatus]int),
	}
	weightSum := 0.0
	confidenceSum := 0
	for _, edge := range edges {
		stats.ByType[edge.Type]++
		stats.ByStatus[edge.Status]++
		weightSum += edge.Weight
		confidenceSum += edge.Confidence
		if edge.Bidirectional {
			stats.Bidirectional++
		}
	}
	if len(edges) > 0 {
		stats.AverageWeight = weightSum / float64(len(edges))
		stats.AverageConfidence = float64(confidenceSum) / float64(len(edges))
	}
	return stats, nil
}

func (s *service) requireNode(ctx context.Context, nodeID string) error {
	node, err := s.repo.FindNodeByID(ctx, nodeID)
	if err != nil {
		return appErrors.Wrap(err, "failed to fetch node")
	}
	if node == nil {
		return appErrors.NewNotFound("node not found: " + nodeID)
	}
	return nil
}

func sortByConfidence(edges []*domain.Relationship) {
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Confidence > edges[j].Confidence
	})
}
