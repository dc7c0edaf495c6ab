// Package ingestion provides business logic for batch knowledge intake:
// run bookkeeping, per-candidate dedup and partial-failure accounting, and
// the retraining trigger on completion.
package ingestion

import (
	"context"
	"time"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/events"
	"kgraph-backend/internal/repository"
	"kgraph-backend/internal/service/hierarchy"
	"kgraph-backend/internal/service/knowledge"
	appErrors "kgraph-backend/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RetrainingThreshold flags a completed run for retraining when either the
// successful count or the domain's node delta exceeds it.
const RetrainingThreshold = 50

// StartInput carries the caller-supplied fields for a new ingestion run.
type StartInput struct {
	DomainID    string
	SubdomainID string
	Type        domain.IngestionType
	Source      domain.IngestionSource
	ExecutedBy  string
	Description string
}

// NodeCandidate is one proposed node inside a batch. SubdomainID overrides
// the run-level subdomain when set.
type NodeCandidate struct {
	SubdomainID    string
	Category       string
	Title          string
	Content        string
	Summary        string
	Keywords       []string
	Examples       []string
	ContentType    domain.ContentType
	StructuredData map[string]interface{}
	Source         domain.Source
	ExpiryDate     *time.Time
	Metadata       domain.NodeMetadata
}

// DomainIngestionStats aggregates a domain's ingestion history.
type DomainIngestionStats struct {
	DomainID       string                        `json:"domainId"`
	TotalRuns      int                           `json:"totalRuns"`
	TotalProcessed domain.ProcessedCounts        `json:"totalProcessed"`
	SuccessRate    float64                       `json:"successRate"`
	ByType         map[domain.IngestionType]int  `json:"byType"`
	ByStatus       map[domain.IngestionStatus]int `json:"byStatus"`
}

// Service defines the interface for batch-intake operations.
type Service interface {
	// Start opens a run as pending: it validates the target hierarchy and
	// captures the domain's counters as the before-snapshot. The first
	// processed batch moves the run to in_progress.
	Start(ctx context.Context, input StartInput) (*domain.Ingestion, error)
	Get(ctx context.Context, id string) (*domain.Ingestion, error)

	// ProcessBatch folds one batch of candidates into an open run. Every
	// candidate is accounted for exactly once: duplicates (same title in the
	// same subdomain) are skipped, creation errors are counted as failed,
	// and one bad candidate never aborts the rest of the batch.
	ProcessBatch(ctx context.Context, id string, candidates []NodeCandidate) (*domain.Ingestion, error)

	// Complete closes a run: final status, timing, after-snapshot and
	// deltas, the subdomain ingestion stamp, and the retraining trigger.
	Complete(ctx context.Context, id, notes string) (*domain.Ingestion, error)
	// Fail closes a run as failed with a reason.
	Fail(ctx context.Context, id, reason string) (*domain.Ingestion, error)

	// History returns a domain's runs, most recent first.
	History(ctx context.Context, domainID string, limit int) ([]*domain.Ingestion, error)
	Stats(ctx context.Context, domainID string) (*DomainIngestionStats, error)
}

type service struct {
	repo      repository.Repository
	knowledge knowledge.Service
	hierarchy hierarchy.Service
	publisher events.Publisher
	logger    *zap.Logger
}

// NewService creates a new ingestion service.
func NewService(repo repository.Repository, knowledgeSvc knowledge.Service, hierarchySvc hierarchy.Service, publisher events.Publisher, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		repo:      repo,
		knowledge: knowledgeSvc,
		hierarchy: hierarchySvc,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *service) Start(ctx context.Context, input StartInput) (*domain.Ingestion, error) {
	if !domain.ValidIngestionType(input.Type) {
		return nil, appErrors.NewValidation("unknown ingestion type: " + string(input.Type))
	}
	d, err := s.hierarchy.GetDomain(ctx, input.DomainID)
	if err != nil {
		return nil, err
	}
	if input.SubdomainID != "" {
		sd, err := s.hierarchy.GetSubdomain(ctx, input.SubdomainID)
		if err != nil {
			return nil, err
		}
		if sd.DomainID != d.ID {
			return nil, appErrors.NewValidation("subdomain does not belong to the given domain")
		}
	}

	now := time.Now()
	ing := &domain.Ingestion{
		ID:          uuid.New().String(),
		NodeIDs:     []string{},
		DomainID:    d.ID,
		SubdomainID: input.SubdomainID,
		Type:        input.Type,
		Source:      input.Source,
		Deduplication: domain.Deduplication{
			Ran: true,
		},
		Status:     domain.IngestionPending,
		ExecutedBy: input.ExecutedBy,
		Duration: domain.IngestionDuration{
			StartTime: now,
		},
		Logs: []domain.LogEntry{{
			Timestamp: now,
			Level:     "info",
			Message:   "ingestion run started",
		}},
		Summary: domain.IngestionSummary{
			Description: input.Description,
		},
		Metrics: domain.IngestionMetrics{
			BeforeIngestion: domain.MetricsSnapshot{
				TotalNodes:   d.TotalNodes,
				QualityScore: d.QualityScore,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateIngestion(ctx, ing); err != nil {
		return nil, appErrors.Wrap(err, "failed to create ingestion record")
	}
	s.logger.Info("ingestion run started",
		zap.String("ingestionId", ing.ID),
		zap.String("domainId", d.ID),
		zap.String("type", string(input.Type)))
	return ing, nil
}

func (s *service) Get(ctx context.Context, id string) (*domain.Ingestion, error) {
	ing, err := s.repo.FindIngestionByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to fetch ingestion record")
	}
	if ing == nil {
		return nil, appErrors.NewNotFound("ingestion record not found: " + id)
	}
	return ing, nil
}

func (s *service) ProcessBatch(ctx context.Context, id string, candidates []NodeCandidate) (*domain.Ingestion, error) {
	if len(candidates) == 0 {
		return nil, appErrors.NewValidation("batch must contain at least one candidate")
	}
	ing, err := s.openRun(ctx, id)
	if err != nil {
		return nil, err
	}

	delta := domain.ProcessedCounts{}
	var createdIDs []string
	var duplicates []string
	failures := map[string]interface{}{}

	for _, candidate := range candidates {
		delta.Total++
		subdomainID := candidate.SubdomainID
		if subdomainID == "" {
			subdomainID = ing.SubdomainID
		}
		if subdomainID == "" {
			delta.Failed++
			failures[candidate.Title] = "no subdomain given for candidate"
			continue
		}

		existing, err := s.repo.FindNodeByTitle(ctx, subdomainID, candidate.Title)
		if err != nil {
			delta.Failed++
			failures[candidate.Title] = err.Error()
			continue
		}
		if existing != nil {
			delta.Skipped++
			duplicates = append(duplicates, candidate.Title)
			continue
		}

		node, err := s.knowledge.CreateNode(ctx, knowledge.CreateNodeInput{
			SubdomainID:    subdomainID,
			Category:       candidate.Category,
			Title:          candidate.Title,
			Content:        candidate.Content,
			Summary:        candidate.Summary,
			Keywords:       candidate.Keywords,
			Examples:       candidate.Examples,
			ContentType:    candidate.ContentType,
			StructuredData: candidate.StructuredData,
			Source:         candidate.Source,
			ExpiryDate:     candidate.ExpiryDate,
			Metadata:       candidate.Metadata,
		})
		if err != nil {
			delta.Failed++
			failures[candidate.Title] = err.Error()
			s.logger.Warn("candidate rejected during ingestion",
				zap.String("ingestionId", id),
				zap.String("title", candidate.Title),
				zap.Error(err))
			continue
		}
		delta.Successful++
		createdIDs = append(createdIDs, node.ID)
	}

	entry := domain.LogEntry{
		Timestamp: time.Now(),
		Level:     "info",
		Message:   "batch processed",
		Details: map[string]interface{}{
			"total":      delta.Total,
			"successful": delta.Successful,
			"failed":     delta.Failed,
			"skipped":    delta.Skipped,
		},
	}
	if len(duplicates) > 0 {
		entry.Details["duplicates"] = duplicates
	}
	if len(failures) > 0 {
		entry.Level = "warn"
		entry.Details["failures"] = failures
	}
	if err := s.repo.ApplyBatch(ctx, id, delta, createdIDs, entry, domain.IngestionInProgress); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *service) Complete(ctx context.Context, id, notes string) (*domain.Ingestion, error) {
	ing, err := s.openRun(ctx, id)
	if err != nil {
		return nil, err
	}

	if ing.SubdomainID != "" {
		if _, err := s.hierarchy.RecomputeSubdomainCounters(ctx, ing.SubdomainID); err != nil {
			return nil, err
		}
		if err := s.hierarchy.RecordDataIngestion(ctx, ing.SubdomainID, time.Now()); err != nil {
			return nil, err
		}
	}
	d, err := s.hierarchy.RecomputeDomainCounters(ctx, ing.DomainID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ing.Status = domain.IngestionCompleted
	if ing.NodesProcessed.Failed > 0 {
		if ing.NodesProcessed.Successful > 0 {
			ing.Status = domain.IngestionPartiallyFailed
		} else {
			ing.Status = domain.IngestionFailed
		}
	}
	ing.Duration.EndTime = &now
	ing.Duration.DurationSeconds = int(now.Sub(ing.Duration.StartTime).Seconds())
	ing.Metrics.AfterIngestion = domain.MetricsSnapshot{
		TotalNodes:   d.TotalNodes,
		QualityScore: d.QualityScore,
	}
	ing.Metrics.DeltaNodes = ing.Metrics.AfterIngestion.TotalNodes - ing.Metrics.BeforeIngestion.TotalNodes
	ing.Metrics.DeltaQualityScore = ing.Metrics.AfterIngestion.QualityScore - ing.Metrics.BeforeIngestion.QualityScore
	if notes != "" {
		ing.Summary.Notes = notes
	}

	if ing.NodesProcessed.Successful > RetrainingThreshold || ing.Metrics.DeltaNodes > RetrainingThreshold {
		ing.ModelImpact.RequiresRetraining = true
		ing.ModelImpact.EstimatedImpact = "high"
	}

	ing.Logs = append(ing.Logs, domain.LogEntry{
		Timestamp: now,
		Level:     "info",
		Message:   "ingestion run closed",
		Details: map[string]interface{}{
			"status":     string(ing.Status),
			"deltaNodes": ing.Metrics.DeltaNodes,
		},
	})
	ing.UpdatedAt = now
	if err := s.repo.UpdateIngestion(ctx, ing); err != nil {
		return nil, err
	}

	if ing.ModelImpact.RequiresRetraining {
		event := events.RetrainingRequired{
			DomainID:        ing.DomainID,
			IngestionID:     ing.ID,
			NodesAdded:      ing.NodesProcessed.Successful,
			EstimatedImpact: ing.ModelImpact.EstimatedImpact,
			OccurredAt:      now,
		}
		if err := s.publisher.PublishRetrainingRequired(ctx, event); err != nil {
			// The run record already carries the retraining flag; a lost
			// event is recoverable from it.
			s.logger.Error("failed to publish retraining event",
				zap.String("ingestionId", ing.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("ingestion run closed",
		zap.String("ingestionId", ing.ID),
		zap.String("status", string(ing.Status)),
		zap.Int("successful", ing.NodesProcessed.Successful),
		zap.Int("failed", ing.NodesProcessed.Failed),
		zap.Int("skipped", ing.NodesProcessed.Skipped))
	return ing, nil
}

func (s *service) Fail(ctx context.Context, id, reason string) (*domain.Ingestion, error) {
	ing, err := s.openRun(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	ing.Status = domain.IngestionFailed
	ing.Duration.EndTime = &now
	ing.Duration.DurationSeconds = int(now.Sub(ing.Duration.StartTime).Seconds())
	ing.Logs = append(ing.Logs, domain.LogEntry{
		Timestamp: now,
		Level:     "error",
		Message:   "ingestion run failed",
		Details:   map[string]interface{}{"reason": reason},
	})
	ing.UpdatedAt = now
	if err := s.repo.UpdateIngestion(ctx, ing); err != nil {
		return nil, err
	}
	return ing, nil
}

func (s *service) History(ctx context.Context, domainID string, limit int) ([]*domain.Ingestion, error) {
	if _, err := s.hierarchy.GetDomain(ctx, domainID); err != nil {
		return nil, err
	}
	return s.repo.FindIngestionsByDomain(ctx, domainID, limit)
}

func (s *service) Stats(ctx context.Context, domainID string) (*DomainIngestionStats, error) {
	runs, err := s.History(ctx, domainID, 0)
	if err != nil {
		return nil, err
	}
	stats := &DomainIngestionStats{
		DomainID: domainID,
		ByType:   make(map[domain.IngestionType]int),
		ByStatus: make(map[domain.IngestionStatus]int),
	}
	for _, run := range runs {
		stats.TotalRuns++
		stats.ByType[run.Type]++
		stats.ByStatus[run.Status]++
		stats.TotalProcessed.Total += run.NodesProcessed.Total
		stats.TotalProcessed.Successful += run.NodesProcessed.Successful
		stats.TotalProcessed.Failed += run.NodesProcessed.Failed
		stats.TotalProcessed.Skipped += run.NodesProcessed.Skipped
	}
	if stats.TotalProcessed.Total > 0 {
		stats.SuccessRate = float64(stats.TotalProcessed.Successful) / float64(stats.TotalProcessed.Total)
	}
	return stats, nil
}

// openRun loads a run and rejects operations on one already closed.
func (s *service) openRun(ctx context.Context, id string) (*domain.Ingestion, error) {
	ing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch ing.Status {
	case domain.IngestionPending, domain.IngestionInProgress:
		return ing, nil
	}
	return nil, appErrors.NewValidation("ingestion run is already closed: " + string(ing.Status))
}
