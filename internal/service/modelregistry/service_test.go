package modelregistry

import (
	"context"
	"testing"

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
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := mocks.NewMockRepository()
	hierarchySvc := hierarchy.NewService(repo)
	d, err := hierarchySvc.CreateDomain(context.Background(), hierarchy.CreateDomainInput{Name: "cybersecurity"})
	require.NoError(t, err)
	return &fixture{
		repo:      repo,
		hierarchy: hierarchySvc,
		svc:       NewService(repo, hierarchySvc),
		domain:    d,
	}
}

func (f *fixture) create(t *testing.T, version string) *domain.ModelVersion {
	t.Helper()
	mv, err := f.svc.Create(context.Background(), CreateInput{
		VersionNumber: version,
		Name:          "kgraph-" + version,
		DomainIDs:     []string{f.domain.ID},
		TrainedBy:     "ml-team",
	})
	require.NoError(t, err)
	return mv
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("registers in development status", func(t *testing.T) {
		mv := f.create(t, "1.0.0")
		assert.Equal(t, domain.ModelDevelopment, mv.Status)
		assert.Nil(t, mv.ReleaseDate)
	})

	t.Run("accepts prefixed and pre-release versions", func(t *testing.T) {
		f.create(t, "v1.1.0")
		f.create(t, "1.2.0-beta.1")
	})

	t.Run("rejects malformed version numbers", func(t *testing.T) {
		for _, bad := range []string{"", "1.0", "one.two.three", "1.0.0 "} {
			_, err := f.svc.Create(ctx, CreateInput{VersionNumber: bad, TrainedBy: "ml-team"})
			assert.True(t, appErrors.IsValidation(err), "version %q", bad)
		}
	})

	t.Run("rejects a duplicate version number", func(t *testing.T) {
		_, err := f.svc.Create(ctx, CreateInput{VersionNumber: "1.0.0", TrainedBy: "ml-team"})
		assert.True(t, appErrors.IsConflict(err))
	})

	t.Run("requires trainedBy", func(t *testing.T) {
		_, err := f.svc.Create(ctx, CreateInput{VersionNumber: "2.0.0"})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("rejects unknown domains", func(t *testing.T) {
		_, err := f.svc.Create(ctx, CreateInput{
			VersionNumber: "2.0.0",
			TrainedBy:     "ml-team",
			DomainIDs:     []string{"nope"},
		})
		assert.True(t, appErrors.IsNotFound(err))
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, "1.0.0")

	t.Run("moves through the lifecycle", func(t *testing.T) {
		mv, err := f.svc.UpdateStatus(ctx, "1.0.0", domain.ModelBeta)
		require.NoError(t, err)
		assert.Equal(t, domain.ModelBeta, mv.Status)
	})

	t.Run("stable is reserved for promotion", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(ctx, "1.0.0", domain.ModelStable)
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("retiring stamps a sunset date", func(t *testing.T) {
		mv, err := f.svc.UpdateStatus(ctx, "1.0.0", domain.ModelRetired)
		require.NoError(t, err)
		require.NotNil(t, mv.SunsetDate)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(ctx, "1.0.0", "legendary")
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("unknown version is not found", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(ctx, "9.9.9", domain.ModelBeta)
		assert.True(t, appErrors.IsNotFound(err))
	})
}

func TestPromoteToStable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, "1.0.0")
	f.create(t, "2.0.0")

	t.Run("no stable version before any promotion", func(t *testing.T) {
		_, err := f.svc.Stable(ctx)
		assert.True(t, appErrors.IsNotFound(err))
	})

	t.Run("promotion sets stable and a release date", func(t *testing.T) {
		mv, err := f.svc.PromoteToStable(ctx, "1.0.0")
		require.NoError(t, err)
		assert.Equal(t, domain.ModelStable, mv.Status)
		require.NotNil(t, mv.ReleaseDate)

		stable, err := f.svc.Stable(ctx)
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", stable.VersionNumber)
	})

	t.Run("promotion stamps the covered domain", func(t *testing.T) {
		d, err := f.hierarchy.GetDomain(ctx, f.domain.ID)
		require.NoError(t, err)
		require.NotNil(t, d.LastModelUpdate)
	})

	t.Run("promoting the next version demotes the previous one", func(t *testing.T) {
		mv, err := f.svc.PromoteToStable(ctx, "2.0.0")
		require.NoError(t, err)
		assert.Equal(t, domain.ModelStable, mv.Status)

		old, err := f.svc.Get(ctx, "1.0.0")
		require.NoError(t, err)
		assert.Equal(t, domain.ModelDeprecated, old.Status)

		stable, err := f.svc.Stable(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2.0.0", stable.VersionNumber)
	})

	t.Run("promoting the stable version is a no-op", func(t *testing.T) {
		mv, err := f.svc.PromoteToStable(ctx, "2.0.0")
		require.NoError(t, err)
		assert.Equal(t, domain.ModelStable, mv.Status)
	})

	t.Run("a retired version cannot be promoted", func(t *testing.T) {
		f.create(t, "0.9.0")
		_, err := f.svc.UpdateStatus(ctx, "0.9.0", domain.ModelRetired)
		require.NoError(t, err)
		_, err = f.svc.PromoteToStable(ctx, "0.9.0")
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("unknown version is not found", func(t *testing.T) {
		_, err := f.svc.PromoteToStable(ctx, "9.9.9")
		assert.True(t, appErrors.IsNotFound(err))
	})
}

func TestPerformanceAndMonitoring(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, "1.0.0")

	t.Run("performance is replaced wholesale", func(t *testing.T) {
		mv, err := f.svc.UpdatePerformance(ctx, "1.0.0", domain.Performance{
			Accuracy: 91.5, F1Score: 88.0,
		})
		require.NoError(t, err)
		assert.Equal(t, 91.5, mv.Performance.Accuracy)
	})

	t.Run("inference is replaced wholesale", func(t *testing.T) {
		mv, err := f.svc.UpdateInference(ctx, "1.0.0", domain.Inference{
			AverageLatencyMs: 120, GPURequired: true,
		})
		require.NoError(t, err)
		assert.True(t, mv.Inference.GPURequired)
	})

	t.Run("monitoring accumulates incidents", func(t *testing.T) {
		_, err := f.svc.RecordMonitoring(ctx, "1.0.0", MonitoringInput{
			DriftScore: 0.1, IncidentsReported: 2, AverageUserSatisfaction: 4.2,
		})
		require.NoError(t, err)
		mv, err := f.svc.RecordMonitoring(ctx, "1.0.0", MonitoringInput{
			DriftScore: 0.3, IncidentsReported: 1, AverageUserSatisfaction: 4.0,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, mv.Monitoring.IncidentsReported)
		assert.Equal(t, 0.3, mv.Monitoring.DriftScore)
		require.NotNil(t, mv.Monitoring.LastMonitoredDate)
	})
}

func TestHistoryAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, "1.0.0")
	f.create(t, "1.1.0")
	f.create(t, "2.0.0")
	_, err := f.svc.PromoteToStable(ctx, "1.1.0")
	require.NoError(t, err)

	t.Run("history puts released versions first", func(t *testing.T) {
		versions, err := f.svc.History(ctx, 0)
		require.NoError(t, err)
		require.Len(t, versions, 3)
		assert.Equal(t, "1.1.0", versions[0].VersionNumber)
	})

	t.Run("history is bounded by limit", func(t *testing.T) {
		versions, err := f.svc.History(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, versions, 1)
	})

	t.Run("list filters by status", func(t *testing.T) {
		versions, err := f.svc.List(ctx, repository.ModelVersionQuery{Status: domain.ModelDevelopment})
		require.NoError(t, err)
		assert.Len(t, versions, 2)
	})

	t.Run("list rejects unknown status filters", func(t *testing.T) {
		_, err := f.svc.List(ctx, repository.ModelVersionQuery{Status: "legendary"})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("stats count by status and name the stable version", func(t *testing.T) {
		stats, err := f.svc.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.TotalVersions)
		assert.Equal(t, 2, stats.ByStatus[domain.ModelDevelopment])
		assert.Equal(t, 1, stats.ByStatus[domain.ModelStable])
		assert.Equal(t, "1.1.0", stats.StableVersion)
	})

	t.Run("stats average accuracy and latency across versions", func(t *testing.T) {
		_, err := f.svc.UpdatePerformance(ctx, "1.0.0", domain.Performance{Accuracy: 80})
		require.NoError(t, err)
		_, err = f.svc.UpdatePerformance(ctx, "1.1.0", domain.Performance{Accuracy: 90})
		require.NoError(t, err)
		_, err = f.svc.UpdatePerformance(ctx, "2.0.0", domain.Performance{Accuracy: 94})
		require.NoError(t, err)
		_, err = f.svc.UpdateInference(ctx, "1.1.0", domain.Inference{AverageLatencyMs: 120})
		require.NoError(t, err)
		_, err = f.svc.UpdateInference(ctx, "2.0.0", domain.Inference{AverageLatencyMs: 90})
		require.NoError(t, err)

		stats, err := f.svc.Stats(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 88.0, stats.AverageAccuracy, 1e-9)
		assert.InDelta(t, 70.0, stats.AverageLatency, 1e-9)
	})
}

func TestCompatibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, "1.0.0")
	mv, err := f.svc.Create(ctx, CreateInput{
		VersionNumber: "2.0.0",
		Name:          "kgraph-2.0.0",
		DomainIDs:     []string{f.domain.ID},
		TrainedBy:     "ml-team",
		Compatibility: domain.Compatibility{
			PreviousVersion:     "1.0.0",
			BreakingChanges:     true,
			BreakingChangesList: []string{"embedding dimensions changed"},
			RollbackSupported:   false,
		},
	})
	require.NoError(t, err)
	assert.True(t, mv.Compatibility.BreakingChanges)

	t.Run("reports the target's breaking changes", func(t *testing.T) {
		report, err := f.svc.Compatibility(ctx, "1.0.0", "2.0.0")
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", report.FromVersion)
		assert.Equal(t, "2.0.0", report.ToVersion)
		assert.True(t, report.BreakingChanges)
		assert.Equal(t, []string{"embedding dimensions changed"}, report.BreakingChangesList)
	})

	t.Run("rollback support comes from the source version", func(t *testing.T) {
		report, err := f.svc.Compatibility(ctx, "1.0.0", "2.0.0")
		require.NoError(t, err)
		assert.False(t, report.RollbackSupported)

		reverse, err := f.svc.Compatibility(ctx, "2.0.0", "1.0.0")
		require.NoError(t, err)
		assert.False(t, reverse.BreakingChanges)
		assert.False(t, reverse.RollbackSupported)
	})

	t.Run("unknown versions are not found", func(t *testing.T) {
		_, err := f.svc.Compatibility(ctx, "9.9.9", "2.0.0")
		assert.True(t, appErrors.IsNotFound(err))
		_, err = f.svc.Compatibility(ctx, "1.0.0", "9.9.9")
		assert.True(t, appErrors.IsNotFound(err))
	})
}
