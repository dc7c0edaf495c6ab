package hierarchy

import (
	"context"
	"testing"
	"time"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/repository"
	"kgraph-backend/internal/repository/mocks"
	appErrors "kgraph-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDomain(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a domain with development status", func(t *testing.T) {
		svc := NewService(mocks.NewMockRepository())
		d, err := svc.CreateDomain(ctx, CreateDomainInput{Name: "cybersecurity", Description: "security knowledge"})
		require.NoError(t, err)
		assert.Equal(t, "cybersecurity", d.Name)
		assert.Equal(t, domain.StatusDevelopment, d.Status)
		assert.Equal(t, 0, d.TotalNodes)
		assert.NotEmpty(t, d.ID)
	})

	t.Run("normalizes the name", func(t *testing.T) {
		svc := NewService(mocks.NewMockRepository())
		d, err := svc.CreateDomain(ctx, CreateDomainInput{Name: "  Legal "})
		require.NoError(t, err)
		assert.Equal(t, "legal", d.Name)
	})

	t.Run("rejects names outside the fixed set", func(t *testing.T) {
		svc := NewService(mocks.NewMockRepository())
		_, err := svc.CreateDomain(ctx, CreateDomainInput{Name: "astrology"})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("duplicate name is a conflict", func(t *testing.T) {
		svc := NewService(mocks.NewMockRepository())
		_, err := svc.CreateDomain(ctx, CreateDomainInput{Name: "osint"})
		require.NoError(t, err)
		_, err = svc.CreateDomain(ctx, CreateDomainInput{Name: "osint"})
		assert.True(t, appErrors.IsConflict(err))
	})
}

func TestDomainLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewService(mocks.NewMockRepository())
	d, err := svc.CreateDomain(ctx, CreateDomainInput{Name: "finance"})
	require.NoError(t, err)

	t.Run("status moves through the lifecycle", func(t *testing.T) {
		updated, err := svc.SetDomainStatus(ctx, d.ID, domain.StatusActive)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusActive, updated.Status)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		_, err := svc.SetDomainStatus(ctx, d.ID, "archived")
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("missing domain is not found", func(t *testing.T) {
		_, err := svc.SetDomainStatus(ctx, "nope", domain.StatusActive)
		assert.True(t, appErrors.IsNotFound(err))
	})

	t.Run("partial updates leave other fields alone", func(t *testing.T) {
		desc := "updated description"
		updated, err := svc.UpdateDomain(ctx, d.ID, UpdateDomainInput{Description: &desc})
		require.NoError(t, err)
		assert.Equal(t, "updated description", updated.Description)
		assert.Equal(t, "finance", updated.Name)
	})
}

func TestCreateSubdomain(t *testing.T) {
	ctx := context.Background()
	svc := NewService(mocks.NewMockRepository())
	d, err := svc.CreateDomain(ctx, CreateDomainInput{Name: "cybersecurity"})
	require.NoError(t, err)

	t.Run("derives the slug from the name", func(t *testing.T) {
		sd, err := svc.CreateSubdomain(ctx, CreateSubdomainInput{DomainID: d.ID, Name: "Penetration Testing"})
		require.NoError(t, err)
		assert.Equal(t, "penetration-testing", sd.Slug)
		assert.Equal(t, domain.StatusActive, sd.Status)
	})

	t.Run("duplicate slug within a domain is a conflict", func(t *testing.T) {
		_, err := svc.CreateSubdomain(ctx, CreateSubdomainInput{DomainID: d.ID, Name: "Penetration Testing"})
		assert.True(t, appErrors.IsConflict(err))
	})

	t.Run("same slug in another domain is fine", func(t *testing.T) {
		other, err := svc.CreateDomain(ctx, CreateDomainInput{Name: "legal"})
		require.NoError(t, err)
		_, err = svc.CreateSubdomain(ctx, CreateSubdomainInput{DomainID: other.ID, Name: "Penetration Testing"})
		assert.NoError(t, err)
	})

	t.Run("unknown parent domain is not found", func(t *testing.T) {
		_, err := svc.CreateSubdomain(ctx, CreateSubdomainInput{DomainID: "nope", Name: "Anything"})
		assert.True(t, appErrors.IsNotFound(err))
	})
}

func TestRecomputeCounters(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewMockRepository()
	svc := NewService(repo)
	d, err := svc.CreateDomain(ctx, CreateDomainInput{Name: "audit"})
	require.NoError(t, err)
	sd, err := svc.CreateSubdomain(ctx, CreateSubdomainInput{DomainID: d.ID, Name: "Internal Controls"})
	require.NoError(t, err)

	seedNode := func(id string, status domain.ValidationStatus, score int) {
		err := repo.CreateNode(ctx, &domain.Node{
			ID:          id,
			SubdomainID: sd.ID,
			Title:       "node " + id,
			Content:     "content",
			Validation:  domain.ValidationRecord{Status: status},
			Stats:       domain.NodeStats{FeedbackScore: score},
			Version:     1,
			CreatedAt:   time.Now(),
		})
		require.NoError(t, err)
	}
	seedNode("n1", domain.ValidationApproved, 80)
	seedNode("n2", domain.ValidationApproved, 90)
	seedNode("n3", domain.ValidationPending, 40)

	t.Run("subdomain quality is the mean score of approved nodes", func(t *testing.T) {
		updated, err := svc.RecomputeSubdomainCounters(ctx, sd.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, updated.TotalNodes)
		assert.Equal(t, 2, updated.ValidatedNodes)
		assert.Equal(t, 85, updated.QualityScore)
	})

	t.Run("domain aggregates roll up from subdomains", func(t *testing.T) {
		updated, err := svc.RecomputeDomainCounters(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, updated.TotalNodes)
		assert.Equal(t, 85, updated.QualityScore)
	})

	t.Run("domain quality weighs every approved node equally", func(t *testing.T) {
		repo := mocks.NewMockRepository()
		svc := NewService(repo)
		d, err := svc.CreateDomain(ctx, CreateDomainInput{Name: "legal"})
		require.NoError(t, err)
		small, err := svc.CreateSubdomain(ctx, CreateSubdomainInput{DomainID: d.ID, Name: "Contracts"})
		require.NoError(t, err)
		large, err := svc.CreateSubdomain(ctx, CreateSubdomainInput{DomainID: d.ID, Name: "Litigation"})
		require.NoError(t, err)

		seed := func(id, subdomainID string, score int) {
			err := repo.CreateNode(ctx, &domain.Node{
				ID:          id,
				SubdomainID: subdomainID,
				Title:       "node " + id,
				Content:     "content",
				Validation:  domain.ValidationRecord{Status: domain.ValidationApproved},
				Stats:       domain.NodeStats{FeedbackScore: score},
				Version:     1,
				CreatedAt:   time.Now(),
			})
			require.NoError(t, err)
		}
		seed("w1", small.ID, 100)
		seed("w2", large.ID, 20)
		seed("w3", large.ID, 20)
		seed("w4", large.ID, 20)

		_, err = svc.RecomputeSubdomainCounters(ctx, small.ID)
		require.NoError(t, err)
		_, err = svc.RecomputeSubdomainCounters(ctx, large.ID)
		require.NoError(t, err)

		updated, err := svc.RecomputeDomainCounters(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, updated.TotalNodes)
		assert.Equal(t, 40, updated.QualityScore)
	})

	t.Run("no approved nodes means zero quality", func(t *testing.T) {
		empty, err := svc.CreateSubdomain(ctx, CreateSubdomainInput{DomainID: d.ID, Name: "Compliance"})
		require.NoError(t, err)
		updated, err := svc.RecomputeSubdomainCounters(ctx, empty.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, updated.QualityScore)
		assert.Equal(t, 0, updated.ValidatedNodes)
	})

	t.Run("stats break nodes down by status", func(t *testing.T) {
		stats, err := svc.SubdomainStats(ctx, sd.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.TotalNodes)
		assert.Equal(t, 2, stats.ByStatus[domain.ValidationApproved])
		assert.Equal(t, 1, stats.ByStatus[domain.ValidationPending])
		assert.InDelta(t, 2.0/3.0, stats.ValidationRate, 1e-9)
	})
}

func TestRecordDataIngestion(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewMockRepository()
	svc := NewService(repo)
	d, err := svc.CreateDomain(ctx, CreateDomainInput{Name: "osint"})
	require.NoError(t, err)
	sd, err := svc.CreateSubdomain(ctx, CreateSubdomainInput{DomainID: d.ID, Name: "Social Media"})
	require.NoError(t, err)

	at := time.Now()
	require.NoError(t, svc.RecordDataIngestion(ctx, sd.ID, at))

	stored, err := svc.GetSubdomain(ctx, sd.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastDataIngestion)
	assert.WithinDuration(t, at, *stored.LastDataIngestion, time.Second)
}

func TestListSubdomainsOrdering(t *testing.T) {
	ctx := context.Background()
	svc := NewService(mocks.NewMockRepository())
	d, err := svc.CreateDomain(ctx, CreateDomainInput{Name: "general"})
	require.NoError(t, err)
	_, err = svc.CreateSubdomain(ctx, CreateSubdomainInput{DomainID: d.ID, Name: "Second", Order: 2})
	require.NoError(t, err)
	_, err = svc.CreateSubdomain(ctx, CreateSubdomainInput{DomainID: d.ID, Name: "First", Order: 1})
	require.NoError(t, err)

	subdomains, err := svc.ListSubdomains(ctx, d.ID, "")
	require.NoError(t, err)
	require.Len(t, subdomains, 2)
	assert.Equal(t, "First", subdomains[0].Name)
	assert.Equal(t, "Second", subdomains[1].Name)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "penetration-testing", Slugify("Penetration Testing"))
	assert.Equal(t, "a-b-c", Slugify("  A & B / C  "))
	assert.Equal(t, "", Slugify("!!!"))
}

var _ repository.Repository = (*mocks.MockRepository)(nil)
