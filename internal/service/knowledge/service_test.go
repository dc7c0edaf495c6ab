package knowledge

import (
	"context"
	"fmt"
	"testing"
	"time"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/repository"
	"kgraph-backend/internal/repository/mocks"
	"kgraph-backend/internal/service/hierarchy"
	appErrors "kgraph-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo      *mocks.MockRepository
	hierarchy hierarchy.Service
	svc       Service
	domain    *domain.Domain
	subdomain *domain.Subdomain
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := mocks.NewMockRepository()
	hierarchySvc := hierarchy.NewService(repo)
	d, err := hierarchySvc.CreateDomain(ctx, hierarchy.CreateDomainInput{Name: "cybersecurity"})
	require.NoError(t, err)
	sd, err := hierarchySvc.CreateSubdomain(ctx, hierarchy.CreateSubdomainInput{DomainID: d.ID, Name: "Pentesting"})
	require.NoError(t, err)
	return &fixture{
		repo:      repo,
		hierarchy: hierarchySvc,
		svc:       NewService(repo, hierarchySvc),
		domain:    d,
		subdomain: sd,
	}
}

func (f *fixture) createNode(t *testing.T, title string) *domain.Node {
	t.Helper()
	node, err := f.svc.CreateNode(context.Background(), CreateNodeInput{
		SubdomainID: f.subdomain.ID,
		Title:       title,
		Content:     "content of " + title,
		Keywords:    []string{"security"},
	})
	require.NoError(t, err)
	return node
}

func TestCreateNodeDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("applies curation defaults", func(t *testing.T) {
		node, err := f.svc.CreateNode(ctx, CreateNodeInput{
			SubdomainID: f.subdomain.ID,
			Title:       "SQL Injection",
			Content:     "how injection works",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ValidationPending, node.Validation.Status)
		assert.Equal(t, 0, node.Validation.Score)
		assert.Empty(t, node.Validation.Validations)
		assert.Equal(t, 1, node.Version)
		assert.Empty(t, node.PreviousVersions)
		assert.Equal(t, domain.ContentText, node.ContentType)
		assert.Equal(t, 50, node.Source.Credibility)
		assert.Equal(t, "es", node.Metadata.Language)
		assert.Equal(t, "intermediate", node.Metadata.Difficulty)
		assert.Equal(t, "public", node.Metadata.Confidentiality)
	})

	t.Run("rejects empty title and content", func(t *testing.T) {
		_, err := f.svc.CreateNode(ctx, CreateNodeInput{SubdomainID: f.subdomain.ID, Content: "x"})
		assert.True(t, appErrors.IsValidation(err))
		_, err = f.svc.CreateNode(ctx, CreateNodeInput{SubdomainID: f.subdomain.ID, Title: "x"})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("rejects unknown content type", func(t *testing.T) {
		_, err := f.svc.CreateNode(ctx, CreateNodeInput{
			SubdomainID: f.subdomain.ID, Title: "t", Content: "c", ContentType: "video",
		})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("rejects unknown subdomain", func(t *testing.T) {
		_, err := f.svc.CreateNode(ctx, CreateNodeInput{SubdomainID: "nope", Title: "t", Content: "c"})
		assert.True(t, appErrors.IsNotFound(err))
	})

	t.Run("updates the subdomain node count", func(t *testing.T) {
		sd, err := f.hierarchy.GetSubdomain(ctx, f.subdomain.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, sd.TotalNodes)
	})
}

func TestValidationWorkflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	node := f.createNode(t, "XSS Basics")

	t.Run("approval stamps the record", func(t *testing.T) {
		updated, err := f.svc.Validate(ctx, node.ID, ValidateInput{
			ValidatedBy: "alice", Status: domain.ValidationApproved, Score: 90, Comments: "solid",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ValidationApproved, updated.Validation.Status)
		assert.Equal(t, 90, updated.Validation.Score)
		assert.Equal(t, "alice", updated.Validation.ApprovedBy)
		require.NotNil(t, updated.Validation.ApprovedAt)
		require.Len(t, updated.Validation.Validations, 1)
	})

	t.Run("rejection keeps the history and records a reason", func(t *testing.T) {
		updated, err := f.svc.Validate(ctx, node.ID, ValidateInput{
			ValidatedBy: "bob", Status: domain.ValidationRejected, Score: 20, Comments: "outdated",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ValidationRejected, updated.Validation.Status)
		assert.Equal(t, "outdated", updated.Validation.RejectionReason)
		require.Len(t, updated.Validation.Validations, 2)
	})

	t.Run("re-validation appends a third entry", func(t *testing.T) {
		updated, err := f.svc.Validate(ctx, node.ID, ValidateInput{
			ValidatedBy: "carol", Status: domain.ValidationNeedsReview, Score: 55,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ValidationNeedsReview, updated.Validation.Status)
		require.Len(t, updated.Validation.Validations, 3)
		assert.Equal(t, "alice", updated.Validation.Validations[0].ValidatedBy)
		assert.Equal(t, "bob", updated.Validation.Validations[1].ValidatedBy)
		assert.Equal(t, "carol", updated.Validation.Validations[2].ValidatedBy)
	})

	t.Run("pending is not a valid decision", func(t *testing.T) {
		_, err := f.svc.Validate(ctx, node.ID, ValidateInput{
			ValidatedBy: "dave", Status: domain.ValidationPending, Score: 10,
		})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("score bounds are enforced", func(t *testing.T) {
		_, err := f.svc.Validate(ctx, node.ID, ValidateInput{
			ValidatedBy: "dave", Status: domain.ValidationApproved, Score: 101,
		})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("approval refreshes the validated node counter", func(t *testing.T) {
		other := f.createNode(t, "CSRF Basics")
		_, err := f.svc.Validate(ctx, other.ID, ValidateInput{
			ValidatedBy: "alice", Status: domain.ValidationApproved, Score: 80,
		})
		require.NoError(t, err)
		sd, err := f.hierarchy.GetSubdomain(ctx, f.subdomain.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, sd.ValidatedNodes)
	})
}

func TestContentVersioning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	node := f.createNode(t, "Buffer Overflows")

	t.Run("each update archives a snapshot and bumps the version", func(t *testing.T) {
		v2, err := f.svc.UpdateContent(ctx, node.ID, "second body", "alice")
		require.NoError(t, err)
		assert.Equal(t, 2, v2.Version)
		require.Len(t, v2.PreviousVersions, 1)
		assert.Equal(t, 1, v2.PreviousVersions[0].Version)
		assert.Equal(t, "content of Buffer Overflows", v2.PreviousVersions[0].Content)
		assert.Equal(t, "alice", v2.PreviousVersions[0].ModifiedBy)

		v3, err := f.svc.UpdateContent(ctx, node.ID, "third body", "bob")
		require.NoError(t, err)
		assert.Equal(t, 3, v3.Version)
		require.Len(t, v3.PreviousVersions, 2)
		assert.Equal(t, "second body", v3.PreviousVersions[1].Content)
		assert.Equal(t, "third body", v3.Content)
	})

	t.Run("history length always trails the version by one", func(t *testing.T) {
		current, err := f.svc.GetNode(ctx, node.ID)
		require.NoError(t, err)
		assert.Equal(t, current.Version-1, len(current.PreviousVersions))
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		_, err := f.svc.UpdateContent(ctx, node.ID, "  ", "alice")
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("a stale write is retried against the fresh version", func(t *testing.T) {
		// The service refetches on conflict, so a single racing writer just
		// means one extra round trip, not a lost update.
		before, err := f.svc.GetNode(ctx, node.ID)
		require.NoError(t, err)
		_, err = f.svc.UpdateContent(ctx, node.ID, "fourth body", "carol")
		require.NoError(t, err)
		after, err := f.svc.GetNode(ctx, node.ID)
		require.NoError(t, err)
		assert.Equal(t, before.Version+1, after.Version)
	})
}

func TestFeedbackScoring(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	node := f.createNode(t, "Hashing 101")

	t.Run("score maps mean rating onto 0-100", func(t *testing.T) {
		updated, err := f.svc.AddFeedback(ctx, node.ID, "user-1", 4, "useful")
		require.NoError(t, err)
		assert.Equal(t, 80, updated.Stats.FeedbackScore)

		updated, err = f.svc.AddFeedback(ctx, node.ID, "user-2", 5, "")
		require.NoError(t, err)
		// mean(4, 5) * 20 = 90
		assert.Equal(t, 90, updated.Stats.FeedbackScore)
		require.Len(t, updated.Stats.Feedback, 2)
	})

	t.Run("out of range ratings are rejected", func(t *testing.T) {
		_, err := f.svc.AddFeedback(ctx, node.ID, "user-3", 6, "")
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("approved node feedback feeds the quality rollup", func(t *testing.T) {
		_, err := f.svc.Validate(ctx, node.ID, ValidateInput{
			ValidatedBy: "alice", Status: domain.ValidationApproved, Score: 75,
		})
		require.NoError(t, err)
		sd, err := f.hierarchy.GetSubdomain(ctx, f.subdomain.ID)
		require.NoError(t, err)
		assert.Equal(t, 90, sd.QualityScore)
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	approve := func(n *domain.Node) {
		_, err := f.svc.Validate(ctx, n.ID, ValidateInput{
			ValidatedBy: "alice", Status: domain.ValidationApproved, Score: 70,
		})
		require.NoError(t, err)
	}

	one, err := f.svc.CreateNode(ctx, CreateNodeInput{
		SubdomainID: f.subdomain.ID, Title: "One", Content: "c",
		Keywords: []string{"tls", "certificates"},
	})
	require.NoError(t, err)
	approve(one)
	two, err := f.svc.CreateNode(ctx, CreateNodeInput{
		SubdomainID: f.subdomain.ID, Title: "Two", Content: "c",
		Keywords: []string{"tls"},
	})
	require.NoError(t, err)
	approve(two)
	_, err = f.svc.CreateNode(ctx, CreateNodeInput{
		SubdomainID: f.subdomain.ID, Title: "Pending", Content: "c",
		Keywords: []string{"tls"},
	})
	require.NoError(t, err)

	t.Run("ranks by match count and excludes unapproved nodes", func(t *testing.T) {
		results, err := f.svc.Search(ctx, []string{"tls", "certificates"}, 0)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, one.ID, results[0].Node.ID)
		assert.Equal(t, 2, results[0].Matches)
		assert.Equal(t, two.ID, results[1].Node.ID)
	})

	t.Run("results are capped at the limit", func(t *testing.T) {
		results, err := f.svc.Search(ctx, []string{"tls", "certificates"}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, one.ID, results[0].Node.ID)
	})

	t.Run("the default limit bounds large result sets", func(t *testing.T) {
		for i := 0; i < DefaultSearchLimit+3; i++ {
			n, err := f.svc.CreateNode(ctx, CreateNodeInput{
				SubdomainID: f.subdomain.ID,
				Title:       fmt.Sprintf("Cipher %02d", i),
				Content:     "c",
				Keywords:    []string{"ciphers"},
			})
			require.NoError(t, err)
			approve(n)
		}
		results, err := f.svc.Search(ctx, []string{"ciphers"}, 0)
		require.NoError(t, err)
		assert.Len(t, results, DefaultSearchLimit)
	})

	t.Run("empty keyword list is rejected", func(t *testing.T) {
		_, err := f.svc.Search(ctx, nil, 0)
		assert.True(t, appErrors.IsValidation(err))
	})
}

func TestRelatedAndExpiring(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	approved := f.createNode(t, "Approved Neighbor")
	_, err := f.svc.Validate(ctx, approved.ID, ValidateInput{
		ValidatedBy: "alice", Status: domain.ValidationApproved, Score: 70,
	})
	require.NoError(t, err)
	pending := f.createNode(t, "Pending Neighbor")

	holder, err := f.svc.CreateNode(ctx, CreateNodeInput{
		SubdomainID:    f.subdomain.ID,
		Title:          "Holder",
		Content:        "c",
		RelatedNodeIDs: []string{approved.ID, pending.ID},
	})
	require.NoError(t, err)

	t.Run("related nodes are filtered to approved", func(t *testing.T) {
		related, err := f.svc.RelatedNodes(ctx, holder.ID)
		require.NoError(t, err)
		require.Len(t, related, 1)
		assert.Equal(t, approved.ID, related[0].ID)
	})

	t.Run("expiring nodes fall inside the window", func(t *testing.T) {
		soon := time.Now().AddDate(0, 0, 3)
		later := time.Now().AddDate(0, 0, 60)
		_, err := f.svc.CreateNode(ctx, CreateNodeInput{
			SubdomainID: f.subdomain.ID, Title: "Expiring Soon", Content: "c", ExpiryDate: &soon,
		})
		require.NoError(t, err)
		_, err = f.svc.CreateNode(ctx, CreateNodeInput{
			SubdomainID: f.subdomain.ID, Title: "Expiring Later", Content: "c", ExpiryDate: &later,
		})
		require.NoError(t, err)

		expiring, err := f.svc.ExpiringNodes(ctx, 30)
		require.NoError(t, err)
		require.Len(t, expiring, 1)
		assert.Equal(t, "Expiring Soon", expiring[0].Title)
	})
}

func TestUsageCounters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	node := f.createNode(t, "Viewed Node")

	require.NoError(t, f.svc.RecordView(ctx, node.ID))
	require.NoError(t, f.svc.RecordView(ctx, node.ID))
	require.NoError(t, f.svc.RecordModelUsage(ctx, node.ID))

	current, err := f.svc.GetNode(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, current.Stats.ViewCount)
	assert.Equal(t, 1, current.Stats.UsageInModels)
}

func TestListNodesFilter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createNode(t, "A")
	node := f.createNode(t, "B")
	_, err := f.svc.Validate(ctx, node.ID, ValidateInput{
		ValidatedBy: "alice", Status: domain.ValidationApproved, Score: 70,
	})
	require.NoError(t, err)

	approved, err := f.svc.ListNodes(ctx, repository.NodeQuery{
		SubdomainID: f.subdomain.ID,
		Status:      domain.ValidationApproved,
	})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, node.ID, approved[0].ID)
}
