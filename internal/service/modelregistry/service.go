// Package modelregistry provides business logic for the model version
// registry: registration, lifecycle status, performance bookkeeping and the
// single-stable promotion rule.
package modelregistry

import (
	"context"
	"regexp"
	"time"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/repository"
	"kgraph-backend/internal/service/hierarchy"
	appErrors "kgraph-backend/pkg/errors"
)

var versionPattern = regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[0-9A-Za-z.\-]+)?$`)

// CreateInput carries the caller-supplied fields for a new model version.
type CreateInput struct {
	VersionNumber string
	Name          string
	Description   string
	DomainIDs     []string
	TrainingStats domain.TrainingStats
	Performance   domain.Performance
	Parameters    domain.Parameters
	Changelog     domain.Changelog
	Compatibility domain.Compatibility
	TrainedBy     string
	Metadata      domain.ModelVersionMetadata
}

// MonitoringInput carries one monitoring observation for a version.
type MonitoringInput struct {
	DriftScore              float64
	IncidentsReported       int
	AverageUserSatisfaction float64
}

// RegistryStats summarizes the registry.
type RegistryStats struct {
	TotalVersions   int                        `json:"totalVersions"`
	ByStatus        map[domain.ModelStatus]int `json:"byStatus"`
	StableVersion   string                     `json:"stableVersion,omitempty"`
	AverageAccuracy float64                    `json:"averageAccuracy"`
	AverageLatency  float64                    `json:"averageLatency"`
}

// CompatibilityReport summarizes an upgrade from one version to another.
type CompatibilityReport struct {
	FromVersion         string   `json:"fromVersion"`
	ToVersion           string   `json:"toVersion"`
	BreakingChanges     bool     `json:"breakingChanges"`
	BreakingChangesList []string `json:"breakingChangesList"`
	RollbackSupported   bool     `json:"rollbackSupported"`
}

// Service defines the interface for model registry operations.
type Service interface {
	// Create registers a version. Version numbers are semver-shaped and
	// unique; duplicates are a conflict.
	Create(ctx context.Context, input CreateInput) (*domain.ModelVersion, error)
	Get(ctx context.Context, versionNumber string) (*domain.ModelVersion, error)
	List(ctx context.Context, query repository.ModelVersionQuery) ([]*domain.ModelVersion, error)
	// Stable returns the current stable version, or NotFound when none
	// has been promoted yet.
	Stable(ctx context.Context) (*domain.ModelVersion, error)

	// UpdateStatus moves a version through its lifecycle. Promotion to
	// stable must go through PromoteToStable instead.
	UpdateStatus(ctx context.Context, versionNumber string, status domain.ModelStatus) (*domain.ModelVersion, error)
	UpdatePerformance(ctx context.Context, versionNumber string, perf domain.Performance) (*domain.ModelVersion, error)
	UpdateInference(ctx context.Context, versionNumber string, inf domain.Inference) (*domain.ModelVersion, error)
	RecordMonitoring(ctx context.Context, versionNumber string, input MonitoringInput) (*domain.ModelVersion, error)

	// PromoteToStable atomically makes the version the single stable
	// release, demoting the previous stable version to deprecated, and
	// stamps the covered domains' last model update time.
	PromoteToStable(ctx context.Context, versionNumber string) (*domain.ModelVersion, error)

	// Compatibility reports what an upgrade between two versions entails:
	// the target's breaking changes and whether the source supports
	// rolling back to it.
	Compatibility(ctx context.Context, fromVersion, toVersion string) (*CompatibilityReport, error)

	// History returns versions newest release first.
	History(ctx context.Context, limit int) ([]*domain.ModelVersion, error)
	Stats(ctx context.Context) (*RegistryStats, error)
}

type service struct {
	repo      repository.Repository
	hierarchy hierarchy.Service
}

// NewService creates a new model registry service.
func NewService(repo repository.Repository, hierarchySvc hierarchy.Service) Service {
	return &service{repo: repo, hierarchy: hierarchySvc}
}

func (s *service) Create(ctx context.Context, input CreateInput) (*domain.ModelVersion, error) {
	if !versionPattern.MatchString(input.VersionNumber) {
		return nil, appErrors.NewValidation("version number must look like 1.2.3: " + input.VersionNumber)
	}
	if input.TrainedBy == "" {
		return nil, appErrors.NewValidation("trainedBy is required")
	}
	for _, domainID := range input.DomainIDs {
		if _, err := s.hierarchy.GetDomain(ctx, domainID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	mv := &domain.ModelVersion{
		VersionNumber: input.VersionNumber,
		Name:          input.Name,
		Description:   input.Description,
		DomainIDs:     input.DomainIDs,
		TrainingStats: input.TrainingStats,
		Performance:   input.Performance,
		Parameters:    input.Parameters,
		Changelog:     input.Changelog,
		Compatibility: input.Compatibility,
		Status:        domain.ModelDevelopment,
		TrainedBy:     input.TrainedBy,
		Metadata:      input.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateModelVersion(ctx, mv); err != nil {
		return nil, err
	}
	return mv, nil
}

func (s *service) Get(ctx context.Context, versionNumber string) (*domain.ModelVersion, error) {
	mv, err := s.repo.FindModelVersion(ctx, versionNumber)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to fetch model version")
	}
	if mv == nil {
		return nil, appErrors.NewNotFound("model version not found: " + versionNumber)
	}
	return mv, nil
}

func (s *service) List(ctx context.Context, query repository.ModelVersionQuery) ([]*domain.ModelVersion, error) {
	if query.Status != "" && !domain.ValidModelStatus(query.Status) {
		return nil, appErrors.NewValidation("unknown model status filter: " + string(query.Status))
	}
	return s.repo.FindModelVersions(ctx, query)
}

func (s *service) Stable(ctx context.Context) (*domain.ModelVersion, error) {
	mv, err := s.repo.FindStableVersion(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to fetch stable version")
	}
	if mv == nil {
		return nil, appErrors.NewNotFound("no stable model version")
	}
	return mv, nil
}

func (s *service) UpdateStatus(ctx context.Context, versionNumber string, status domain.ModelStatus) (*domain.ModelVersion, error) {
	if !domain.ValidModelStatus(status) {
		return nil, appErrors.NewValidation("unknown model status: " + string(status))
	}
	if status == domain.ModelStable {
		return nil, appErrors.NewValidation("use stable promotion to mark a version stable")
	}
	mv, err := s.Get(ctx, versionNumber)
	if err != nil {
		return nil, err
	}
	mv.Status = status
	if status == domain.ModelRetired && mv.SunsetDate == nil {
		now := time.Now()
		mv.SunsetDate = &now
	}
	mv.UpdatedAt = time.Now()
	if err := s.repo.UpdateModelVersion(ctx, mv); err != nil {
		return nil, err
	}
	return mv, nil
}

func (s *service) UpdatePerformance(ctx context.Context, versionNumber string, perf domain.Performance) (*domain.ModelVersion, error) {
	mv, err := s.Get(ctx, versionNumber)
	if err != nil {
		return nil, err
	}
	mv.Performance = perf
	mv.UpdatedAt = time.Now()
	if err := s.repo.UpdateModelVersion(ctx, mv); err != nil {
		return nil, err
	}
	return mv, nil
}

func (s *service) UpdateInference(ctx context.Context, versionNumber string, inf domain.Inference) (*domain.ModelVersion, error) {
	mv, err := s.Get(ctx, versionNumber)
	if err != nil {
		return nil, err
	}
	mv.Inference = inf
	mv.UpdatedAt = time.Now()
	if err := s.repo.UpdateModelVersion(ctx, mv); err != nil {
		return nil, err
	}
	return mv, nil
}

func (s *service) RecordMonitoring(ctx context.Context, versionNumber string, input MonitoringInput) (*domain.ModelVersion, error) {
	mv, err := s.Get(ctx, versionNumber)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	mv.Monitoring.DriftScore = input.DriftScore
	mv.Monitoring.IncidentsReported += input.IncidentsReported
	mv.Monitoring.AverageUserSatisfaction = input.AverageUserSatisfaction
	mv.Monitoring.LastMonitoredDate = &now
	mv.UpdatedAt = now
	if err := s.repo.UpdateModelVersion(ctx, mv); err != nil {
		return nil, err
	}
	return mv, nil
}

func (s *service) PromoteToStable(ctx context.Context, versionNumber string) (*domain.ModelVersion, error) {
	mv, err := s.Get(ctx, versionNumber)
	if err != nil {
		return nil, err
	}
	switch mv.Status {
	case domain.ModelRetired:
		return nil, appErrors.NewValidation("a retired version cannot be promoted")
	case domain.ModelStable:
		return mv, nil // already stable
	}

	releaseDate := time.Now()
	if err := s.repo.PromoteStable(ctx, versionNumber, releaseDate); err != nil {
		return nil, err
	}
	for _, domainID := range mv.DomainIDs {
		d, err := s.hierarchy.GetDomain(ctx, domainID)
		if err != nil {
			return nil, err
		}
		d.LastModelUpdate = &releaseDate
		d.UpdatedAt = releaseDate
		if err := s.repo.UpdateDomain(ctx, d); err != nil {
			return nil, appErrors.Wrap(err, "failed to stamp domain model update")
		}
	}
	return s.Get(ctx, versionNumber)
}

func (s *service) Compatibility(ctx context.Context, fromVersion, toVersion string) (*CompatibilityReport, error) {
	from, err := s.Get(ctx, fromVersion)
	if err != nil {
		return nil, err
	}
	to, err := s.Get(ctx, toVersion)
	if err != nil {
		return nil, err
	}
	return &CompatibilityReport{
		FromVersion:         from.VersionNumber,
		ToVersion:           to.VersionNumber,
		BreakingChanges:     to.Compatibility.BreakingChanges,
		BreakingChangesList: to.Compatibility.BreakingChangesList,
		RollbackSupported:   from.Compatibility.RollbackSupported,
	}, nil
}

func (s *service) History(ctx context.Context, limit int) ([]*domain.ModelVersion, error) {
	return s.repo.FindModelVersions(ctx, repository.ModelVersionQuery{Limit: limit})
}

func (s *service) Stats(ctx context.Context) (*RegistryStats, error) {
	versions, err := s.repo.FindModelVersions(ctx, repository.ModelVersionQuery{Limit: 0})
	if err != nil {
		return nil, err
	}
	stats := &RegistryStats{
		ByStatus: make(map[domain.ModelStatus]int),
	}
	accuracySum := 0.0
	latencySum := 0.0
	for _, mv := range versions {
		stats.TotalVersions++
		stats.ByStatus[mv.Status]++
		accuracySum += mv.Performance.Accuracy
		latencySum += mv.Inference.AverageLatencyMs
		if mv.Status == domain.ModelStable {
			stats.StableVersion = mv.VersionNumber
		}
	}
	if stats.TotalVersions > 0 {
		stats.AverageAccuracy = accuracySum / float64(stats.TotalVersions)
		stats.AverageLatency = latencySum / float64(stats.TotalVersions)
	}
	return stats, nil
}
