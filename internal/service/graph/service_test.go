package graph

import (
	"context"
	"fmt"
	"testing"
	"time"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/repository/mocks"
	appErrors "kgraph-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedNode(t *testing.T, repo *mocks.MockRepository, id string) {
	t.Helper()
	err := repo.CreateNode(context.Background(), &domain.Node{
		ID:          id,
		SubdomainID: "sd-1",
		Title:       "node " + id,
		Content:     "content",
		Validation:  domain.ValidationRecord{Status: domain.ValidationApproved},
		Version:     1,
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)
}

func link(t *testing.T, svc Service, source, target string, relType domain.RelationshipType, opts ...func(*CreateRelationshipInput)) *domain.Relationship {
	t.Helper()
	input := CreateRelationshipInput{SourceNodeID: source, TargetNodeID: target, Type: relType}
	for _, opt := range opts {
		opt(&input)
	}
	rel, err := svc.CreateRelationship(context.Background(), input)
	require.NoError(t, err)
	return rel
}

func TestCreateRelationship(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewMockRepository()
	svc := NewService(repo)
	seedNode(t, repo, "a")
	seedNode(t, repo, "b")

	t.Run("applies defaults", func(t *testing.T) {
		rel := link(t, svc, "a", "b", domain.RelRelatedTo)
		assert.Equal(t, 0.5, rel.Weight)
		assert.Equal(t, 50, rel.Confidence)
		assert.Equal(t, domain.RelStatusActive, rel.Status)
	})

	t.Run("rejects unknown types", func(t *testing.T) {
		_, err := svc.CreateRelationship(ctx, CreateRelationshipInput{
			SourceNodeID: "a", TargetNodeID: "b", Type: "follows",
		})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("rejects self loops", func(t *testing.T) {
		_, err := svc.CreateRelationship(ctx, CreateRelationshipInput{
			SourceNodeID: "a", TargetNodeID: "a", Type: domain.RelRelatedTo,
		})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("rejects out of range weight and confidence", func(t *testing.T) {
		weight := 1.5
		_, err := svc.CreateRelationship(ctx, CreateRelationshipInput{
			SourceNodeID: "a", TargetNodeID: "b", Type: domain.RelRelatedTo, Weight: &weight,
		})
		assert.True(t, appErrors.IsValidation(err))

		confidence := -1
		_, err = svc.CreateRelationship(ctx, CreateRelationshipInput{
			SourceNodeID: "a", TargetNodeID: "b", Type: domain.RelRelatedTo, Confidence: &confidence,
		})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("both endpoints must exist", func(t *testing.T) {
		_, err := svc.CreateRelationship(ctx, CreateRelationshipInput{
			SourceNodeID: "a", TargetNodeID: "ghost", Type: domain.RelRelatedTo,
		})
		assert.True(t, appErrors.IsNotFound(err))
	})
}

func TestNeighborQueries(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewMockRepository()
	svc := NewService(repo)
	for _, id := range []string{"a", "b", "c"} {
		seedNode(t, repo, id)
	}
	strong := 0.9
	weak := 0.2
	link(t, svc, "a", "b", domain.RelRelatedTo, func(in *CreateRelationshipInput) { in.Weight = &strong })
	link(t, svc, "a", "c", domain.RelRelatedTo, func(in *CreateRelationshipInput) { in.Weight = &weak })
	link(t, svc, "c", "a", domain.RelExtends)

	t.Run("outgoing edges come back strongest first", func(t *testing.T) {
		edges, err := svc.Outgoing(ctx, "a")
		require.NoError(t, err)
		require.Len(t, edges, 2)
		assert.Equal(t, "b", edges[0].TargetNodeID)
		assert.Equal(t, "c", edges[1].TargetNodeID)
	})

	t.Run("incoming edges are queryable from the target end", func(t *testing.T) {
		edges, err := svc.Incoming(ctx, "a")
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, "c", edges[0].SourceNodeID)
	})

	t.Run("deactivated edges drop out", func(t *testing.T) {
		edges, err := svc.Outgoing(ctx, "a")
		require.NoError(t, err)
		_, err = svc.Deactivate(ctx, edges[1].ID)
		require.NoError(t, err)
		remaining, err := svc.Outgoing(ctx, "a")
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, "b", remaining[0].TargetNodeID)
	})
}

func TestFindPath(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewMockRepository()
	svc := NewService(repo)
	for _, id := range []string{"a", "b", "c", "d"} {
		seedNode(t, repo, id)
	}
	link(t, svc, "a", "b", domain.RelRelatedTo)
	link(t, svc, "b", "c", domain.RelExtends)

	t.Run("finds a two hop path", func(t *testing.T) {
		result, err := svc.FindPath(ctx, "a", "c", 0)
		require.NoError(t, err)
		assert.True(t, result.Found)
		assert.Equal(t, []string{"a", "b", "c"}, result.Path)
		assert.Equal(t, 2, result.Length)
	})

	t.Run("maxDepth bounds the search", func(t *testing.T) {
		result, err := svc.FindPath(ctx, "a", "c", 1)
		require.NoError(t, err)
		assert.False(t, result.Found)
		assert.Empty(t, result.Path)
	})

	t.Run("direction matters for one way edges", func(t *testing.T) {
		result, err := svc.FindPath(ctx, "c", "a", 0)
		require.NoError(t, err)
		assert.False(t, result.Found)
	})

	t.Run("bidirectional edges traverse both ways", func(t *testing.T) {
		link(t, svc, "c", "d", domain.RelSimilarTo, func(in *CreateRelationshipInput) { in.Bidirectional = true })
		result, err := svc.FindPath(ctx, "d", "c", 0)
		require.NoError(t, err)
		assert.True(t, result.Found)
		assert.Equal(t, []string{"d", "c"}, result.Path)
	})

	t.Run("source equal to target is a trivial path", func(t *testing.T) {
		result, err := svc.FindPath(ctx, "a", "a", 0)
		require.NoError(t, err)
		assert.True(t, result.Found)
		assert.Equal(t, []string{"a"}, result.Path)
		assert.Equal(t, 0, result.Length)
	})

	t.Run("unknown endpoints are not found", func(t *testing.T) {
		_, err := svc.FindPath(ctx, "a", "ghost", 0)
		assert.True(t, appErrors.IsNotFound(err))
	})
}

func TestSimilarAndDependents(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewMockRepository()
	svc := NewService(repo)
	for _, id := range []string{"hub", "s1", "s2", "d1", "d2"} {
		seedNode(t, repo, id)
	}
	high := 95
	low := 30
	link(t, svc, "hub", "s1", domain.RelSimilarTo, func(in *CreateRelationshipInput) { in.Confidence = &low })
	link(t, svc, "s2", "hub", domain.RelSimilarTo, func(in *CreateRelationshipInput) { in.Confidence = &high })
	link(t, svc, "hub", "d1", domain.RelPrerequisiteOf)
	link(t, svc, "hub", "d2", domain.RelPrerequisiteOf)

	t.Run("similarity works from either end, highest confidence first", func(t *testing.T) {
		similar, err := svc.SimilarNodes(ctx, "hub", 0)
		require.NoError(t, err)
		require.Len(t, similar, 2)
		assert.Equal(t, "s2", similar[0].ID)
		assert.Equal(t, "s1", similar[1].ID)
	})

	t.Run("a limit keeps only the strongest matches", func(t *testing.T) {
		similar, err := svc.SimilarNodes(ctx, "hub", 1)
		require.NoError(t, err)
		require.Len(t, similar, 1)
		assert.Equal(t, "s2", similar[0].ID)
	})

	t.Run("the default caps a large similarity neighborhood", func(t *testing.T) {
		for i := 0; i < DefaultSimilarLimit+2; i++ {
			id := fmt.Sprintf("s-extra-%d", i)
			seedNode(t, repo, id)
			link(t, svc, "hub", id, domain.RelSimilarTo)
		}
		similar, err := svc.SimilarNodes(ctx, "hub", 0)
		require.NoError(t, err)
		assert.Len(t, similar, DefaultSimilarLimit)
	})

	t.Run("dependents are targets of prerequisite edges", func(t *testing.T) {
		dependents, err := svc.DependentNodes(ctx, "hub", 0)
		require.NoError(t, err)
		require.Len(t, dependents, 2)
		ids := []string{dependents[0].ID, dependents[1].ID}
		assert.ElementsMatch(t, []string{"d1", "d2"}, ids)
	})

	t.Run("dependents honor the limit too", func(t *testing.T) {
		dependents, err := svc.DependentNodes(ctx, "hub", 1)
		require.NoError(t, err)
		assert.Len(t, dependents, 1)
	})
}

func TestGraphStats(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewMockRepository()
	svc := NewService(repo)
	for _, id := range []string{"a", "b", "c"} {
		seedNode(t, repo, id)
	}
	link(t, svc, "a", "b", domain.RelRelatedTo)
	link(t, svc, "b", "c", domain.RelRelatedTo, func(in *CreateRelationshipInput) { in.Bidirectional = true })
	link(t, svc, "a", "c", domain.RelExtends)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEdges)
	assert.Equal(t, 2, stats.ByType[domain.RelRelatedTo])
	assert.Equal(t, 1, stats.ByType[domain.RelExtends])
	assert.Equal(t, 3, stats.ByStatus[domain.RelStatusActive])
	assert.Equal(t, 1, stats.Bidirectional)
	assert.InDelta(t, 0.5, stats.AverageWeight, 1e-9)
	assert.InDelta(t, 50.0, stats.AverageConfidence, 1e-9)
}
