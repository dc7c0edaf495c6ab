package ingestion

import (
	"context"
	"fmt"
	"testing"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/events"
	"kgraph-backend/internal/repository/mocks"
	"kgraph-backend/internal/service/hierarchy"
	"kgraph-backend/internal/service/knowledge"
	appErrors "kgraph-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	published []events.RetrainingRequired
}

func (p *capturingPublisher) PublishRetrainingRequired(ctx context.Context, event events.RetrainingRequired) error {
	p.published = append(p.published, event)
	return nil
}

type fixture struct {
	repo      *mocks.MockRepository
	hierarchy hierarchy.Service
	knowledge knowledge.Service
	publisher *capturingPublisher
	svc       Service
	domain    *domain.Domain
	subdomain *domain.Subdomain
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := mocks.NewMockRepository()
	hierarchySvc := hierarchy.NewService(repo)
	knowledgeSvc := knowledge.NewService(repo, hierarchySvc)
	publisher := &capturingPublisher{}
	svc := NewService(repo, knowledgeSvc, hierarchySvc, publisher, nil)

	d, err := hierarchySvc.CreateDomain(ctx, hierarchy.CreateDomainInput{Name: "cybersecurity"})
	require.NoError(t, err)
	sd, err := hierarchySvc.CreateSubdomain(ctx, hierarchy.CreateSubdomainInput{DomainID: d.ID, Name: "Pentesting"})
	require.NoError(t, err)
	return &fixture{
		repo:      repo,
		hierarchy: hierarchySvc,
		knowledge: knowledgeSvc,
		publisher: publisher,
		svc:       svc,
		domain:    d,
		subdomain: sd,
	}
}

func candidate(title string) NodeCandidate {
	return NodeCandidate{
		Title:    title,
		Content:  "content of " + title,
		Keywords: []string{"security"},
	}
}

func TestStart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("opens a pending run with a before snapshot", func(t *testing.T) {
		ing, err := f.svc.Start(ctx, StartInput{
			DomainID:    f.domain.ID,
			SubdomainID: f.subdomain.ID,
			Type:        domain.IngestBulkUpload,
			ExecutedBy:  "importer",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.IngestionPending, ing.Status)
		assert.Equal(t, 0, ing.Metrics.BeforeIngestion.TotalNodes)
		assert.False(t, ing.Duration.StartTime.IsZero())
		require.Len(t, ing.Logs, 1)
	})

	t.Run("rejects unknown ingestion types", func(t *testing.T) {
		_, err := f.svc.Start(ctx, StartInput{DomainID: f.domain.ID, Type: "carrier_pigeon"})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("rejects a subdomain from another domain", func(t *testing.T) {
		other, err := f.hierarchy.CreateDomain(ctx, hierarchy.CreateDomainInput{Name: "legal"})
		require.NoError(t, err)
		foreign, err := f.hierarchy.CreateSubdomain(ctx, hierarchy.CreateSubdomainInput{DomainID: other.ID, Name: "Contracts"})
		require.NoError(t, err)
		_, err = f.svc.Start(ctx, StartInput{
			DomainID: f.domain.ID, SubdomainID: foreign.ID, Type: domain.IngestManual,
		})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("rejects unknown domains", func(t *testing.T) {
		_, err := f.svc.Start(ctx, StartInput{DomainID: "nope", Type: domain.IngestManual})
		assert.True(t, appErrors.IsNotFound(err))
	})
}

func TestProcessBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// One node already exists so one batch candidate is a duplicate.
	_, err := f.knowledge.CreateNode(ctx, knowledge.CreateNodeInput{
		SubdomainID: f.subdomain.ID,
		Title:       "Port Scanning",
		Content:     "existing content",
	})
	require.NoError(t, err)

	ing, err := f.svc.Start(ctx, StartInput{
		DomainID:    f.domain.ID,
		SubdomainID: f.subdomain.ID,
		Type:        domain.IngestBulkUpload,
		ExecutedBy:  "importer",
	})
	require.NoError(t, err)

	t.Run("accounts for every candidate exactly once", func(t *testing.T) {
		updated, err := f.svc.ProcessBatch(ctx, ing.ID, []NodeCandidate{
			candidate("SQL Injection"),
			candidate("Port Scanning"), // duplicate title
			candidate("Privilege Escalation"),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.IngestionInProgress, updated.Status)
		assert.Equal(t, 3, updated.NodesProcessed.Total)
		assert.Equal(t, 2, updated.NodesProcessed.Successful)
		assert.Equal(t, 1, updated.NodesProcessed.Skipped)
		assert.Equal(t, 0, updated.NodesProcessed.Failed)
		assert.Equal(t, 1, updated.Deduplication.DuplicatesFound)
		assert.Len(t, updated.NodeIDs, 2)
	})

	t.Run("skipped titles are recorded in the batch log", func(t *testing.T) {
		run, err := f.svc.Get(ctx, ing.ID)
		require.NoError(t, err)
		last := run.Logs[len(run.Logs)-1]
		assert.Equal(t, []string{"Port Scanning"}, last.Details["duplicates"])
	})

	t.Run("a bad candidate fails alone, not the batch", func(t *testing.T) {
		updated, err := f.svc.ProcessBatch(ctx, ing.ID, []NodeCandidate{
			{Title: "No Content"}, // invalid: empty content
			candidate("Lateral Movement"),
		})
		require.NoError(t, err)
		assert.Equal(t, 5, updated.NodesProcessed.Total)
		assert.Equal(t, 3, updated.NodesProcessed.Successful)
		assert.Equal(t, 1, updated.NodesProcessed.Failed)
	})

	t.Run("resubmitting the same batch skips everything", func(t *testing.T) {
		updated, err := f.svc.ProcessBatch(ctx, ing.ID, []NodeCandidate{
			candidate("SQL Injection"),
			candidate("Privilege Escalation"),
		})
		require.NoError(t, err)
		assert.Equal(t, 7, updated.NodesProcessed.Total)
		assert.Equal(t, 3, updated.NodesProcessed.Successful)
		assert.Equal(t, 3, updated.NodesProcessed.Skipped)
	})

	t.Run("empty batch is rejected", func(t *testing.T) {
		_, err := f.svc.ProcessBatch(ctx, ing.ID, nil)
		assert.True(t, appErrors.IsValidation(err))
	})
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Seed one pre-existing node so the delta differs from the raw total.
	_, err := f.knowledge.CreateNode(ctx, knowledge.CreateNodeInput{
		SubdomainID: f.subdomain.ID,
		Title:       "Port Scanning",
		Content:     "existing content",
	})
	require.NoError(t, err)

	ing, err := f.svc.Start(ctx, StartInput{
		DomainID:    f.domain.ID,
		SubdomainID: f.subdomain.ID,
		Type:        domain.IngestBulkUpload,
		ExecutedBy:  "importer",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ing.Metrics.BeforeIngestion.TotalNodes)

	_, err = f.svc.ProcessBatch(ctx, ing.ID, []NodeCandidate{
		candidate("SQL Injection"),
		candidate("Port Scanning"), // duplicate
		candidate("Privilege Escalation"),
	})
	require.NoError(t, err)

	closed, err := f.svc.Complete(ctx, ing.ID, "initial pentesting import")
	require.NoError(t, err)

	t.Run("closes with completed status and timing", func(t *testing.T) {
		assert.Equal(t, domain.IngestionCompleted, closed.Status)
		require.NotNil(t, closed.Duration.EndTime)
		assert.Equal(t, "initial pentesting import", closed.Summary.Notes)
	})

	t.Run("after snapshot and deltas reflect the added nodes", func(t *testing.T) {
		assert.Equal(t, 3, closed.Metrics.AfterIngestion.TotalNodes)
		assert.Equal(t, 2, closed.Metrics.DeltaNodes)
	})

	t.Run("domain and subdomain counters are refreshed", func(t *testing.T) {
		d, err := f.hierarchy.GetDomain(ctx, f.domain.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, d.TotalNodes)
		sd, err := f.hierarchy.GetSubdomain(ctx, f.subdomain.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, sd.TotalNodes)
		assert.NotNil(t, sd.LastDataIngestion)
	})

	t.Run("below the threshold no retraining fires", func(t *testing.T) {
		assert.False(t, closed.ModelImpact.RequiresRetraining)
		assert.Empty(t, f.publisher.published)
	})

	t.Run("a closed run accepts no more batches", func(t *testing.T) {
		_, err := f.svc.ProcessBatch(ctx, ing.ID, []NodeCandidate{candidate("Too Late")})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("completing twice is rejected", func(t *testing.T) {
		_, err := f.svc.Complete(ctx, ing.ID, "")
		assert.True(t, appErrors.IsValidation(err))
	})
}

func TestPartialFailureStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ing, err := f.svc.Start(ctx, StartInput{
		DomainID:    f.domain.ID,
		SubdomainID: f.subdomain.ID,
		Type:        domain.IngestAPI,
	})
	require.NoError(t, err)

	_, err = f.svc.ProcessBatch(ctx, ing.ID, []NodeCandidate{
		candidate("Good One"),
		{Title: "Bad One"}, // empty content
	})
	require.NoError(t, err)

	closed, err := f.svc.Complete(ctx, ing.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionPartiallyFailed, closed.Status)
}

func TestAllFailedStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ing, err := f.svc.Start(ctx, StartInput{
		DomainID:    f.domain.ID,
		SubdomainID: f.subdomain.ID,
		Type:        domain.IngestAPI,
	})
	require.NoError(t, err)

	_, err = f.svc.ProcessBatch(ctx, ing.ID, []NodeCandidate{
		{Title: "Bad One"},
		{Title: "Bad Two"},
	})
	require.NoError(t, err)

	closed, err := f.svc.Complete(ctx, ing.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionFailed, closed.Status)
}

func TestRetrainingTrigger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ing, err := f.svc.Start(ctx, StartInput{
		DomainID:    f.domain.ID,
		SubdomainID: f.subdomain.ID,
		Type:        domain.IngestDatabaseSync,
	})
	require.NoError(t, err)

	var batch []NodeCandidate
	for i := 0; i < RetrainingThreshold+1; i++ {
		batch = append(batch, candidate(fmt.Sprintf("Technique %03d", i)))
	}
	_, err = f.svc.ProcessBatch(ctx, ing.ID, batch)
	require.NoError(t, err)

	closed, err := f.svc.Complete(ctx, ing.ID, "")
	require.NoError(t, err)

	assert.True(t, closed.ModelImpact.RequiresRetraining)
	assert.Equal(t, "high", closed.ModelImpact.EstimatedImpact)
	require.Len(t, f.publisher.published, 1)
	event := f.publisher.published[0]
	assert.Equal(t, f.domain.ID, event.DomainID)
	assert.Equal(t, ing.ID, event.IngestionID)
	assert.Equal(t, RetrainingThreshold+1, event.NodesAdded)
}

func TestRetrainingNotTriggeredAtThreshold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ing, err := f.svc.Start(ctx, StartInput{
		DomainID:    f.domain.ID,
		SubdomainID: f.subdomain.ID,
		Type:        domain.IngestDatabaseSync,
	})
	require.NoError(t, err)

	var batch []NodeCandidate
	for i := 0; i < RetrainingThreshold; i++ {
		batch = append(batch, candidate(fmt.Sprintf("Technique %03d", i)))
	}
	_, err = f.svc.ProcessBatch(ctx, ing.ID, batch)
	require.NoError(t, err)

	closed, err := f.svc.Complete(ctx, ing.ID, "")
	require.NoError(t, err)
	assert.Equal(t, RetrainingThreshold, closed.NodesProcessed.Successful)
	assert.False(t, closed.ModelImpact.RequiresRetraining)
	assert.Empty(t, f.publisher.published)
}

func TestRetrainingTriggerOnNodeDelta(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ing, err := f.svc.Start(ctx, StartInput{
		DomainID:    f.domain.ID,
		SubdomainID: f.subdomain.ID,
		Type:        domain.IngestWebScraping,
	})
	require.NoError(t, err)

	_, err = f.svc.ProcessBatch(ctx, ing.ID, []NodeCandidate{
		candidate("Scraped One"),
		candidate("Scraped Two"),
	})
	require.NoError(t, err)

	// Nodes created outside the run still grow the domain while it is open.
	for i := 0; i < RetrainingThreshold; i++ {
		_, err := f.knowledge.CreateNode(ctx, knowledge.CreateNodeInput{
			SubdomainID: f.subdomain.ID,
			Title:       fmt.Sprintf("External %03d", i),
			Content:     "imported elsewhere",
		})
		require.NoError(t, err)
	}

	closed, err := f.svc.Complete(ctx, ing.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, closed.NodesProcessed.Successful)
	assert.Equal(t, RetrainingThreshold+2, closed.Metrics.DeltaNodes)
	assert.True(t, closed.ModelImpact.RequiresRetraining)
	require.Len(t, f.publisher.published, 1)
}

func TestFail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ing, err := f.svc.Start(ctx, StartInput{
		DomainID: f.domain.ID, SubdomainID: f.subdomain.ID, Type: domain.IngestManual,
	})
	require.NoError(t, err)

	failed, err := f.svc.Fail(ctx, ing.ID, "source unreachable")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionFailed, failed.Status)
	require.NotNil(t, failed.Duration.EndTime)
	last := failed.Logs[len(failed.Logs)-1]
	assert.Equal(t, "error", last.Level)
	assert.Equal(t, "source unreachable", last.Details["reason"])
}

func TestHistoryAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	runAndClose := func(ingType domain.IngestionType, titles ...string) {
		ing, err := f.svc.Start(ctx, StartInput{
			DomainID: f.domain.ID, SubdomainID: f.subdomain.ID, Type: ingType,
		})
		require.NoError(t, err)
		var batch []NodeCandidate
		for _, title := range titles {
			batch = append(batch, candidate(title))
		}
		if len(batch) > 0 {
			_, err = f.svc.ProcessBatch(ctx, ing.ID, batch)
			require.NoError(t, err)
		}
		_, err = f.svc.Complete(ctx, ing.ID, "")
		require.NoError(t, err)
	}
	runAndClose(domain.IngestBulkUpload, "One", "Two")
	runAndClose(domain.IngestManual, "Three")

	t.Run("history is bounded by limit", func(t *testing.T) {
		runs, err := f.svc.History(ctx, f.domain.ID, 1)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	})

	t.Run("stats aggregate across runs", func(t *testing.T) {
		stats, err := f.svc.Stats(ctx, f.domain.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalRuns)
		assert.Equal(t, 3, stats.TotalProcessed.Total)
		assert.Equal(t, 3, stats.TotalProcessed.Successful)
		assert.InDelta(t, 1.0, stats.SuccessRate, 1e-9)
		assert.Equal(t, 1, stats.ByType[domain.IngestBulkUpload])
		assert.Equal(t, 1, stats.ByType[domain.IngestManual])
		assert.Equal(t, 2, stats.ByStatus[domain.IngestionCompleted])
	})

	t.Run("unknown domain history is not found", func(t *testing.T) {
		_, err := f.svc.History(ctx, "nope", 0)
		assert.True(t, appErrors.IsNotFound(err))
	})
}
