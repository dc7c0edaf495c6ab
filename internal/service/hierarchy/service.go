// Package hierarchy provides business logic for the domain and subdomain
// layers of the knowledge graph: creation, lifecycle status, and the cached
// aggregate counters both levels carry.
package hierarchy

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/repository"
	appErrors "kgraph-backend/pkg/errors"

	"github.com/google/uuid"
)

// CreateDomainInput carries the caller-supplied fields for a new domain.
type CreateDomainInput struct {
	Name        string
	Description string
	Icon        string
	Color       string
	Priority    int
	Metadata    domain.DomainMetadata
}

// UpdateDomainInput carries the editable fields of a domain. Nil pointers
// leave the stored value untouched.
type UpdateDomainInput struct {
	Description *string
	Icon        *string
	Color       *string
	Priority    *int
	Metadata    *domain.DomainMetadata
}

// CreateSubdomainInput carries the caller-supplied fields for a new subdomain.
type CreateSubdomainInput struct {
	DomainID    string
	Name        string
	Description string
	Slug        string
	Icon        string
	Order       int
	Metadata    domain.SubdomainMetadata
}

// UpdateSubdomainInput carries the editable fields of a subdomain.
type UpdateSubdomainInput struct {
	Name        *string
	Description *string
	Icon        *string
	Order       *int
	Status      *domain.Status
	Metadata    *domain.SubdomainMetadata
}

// SubdomainStats summarizes a subdomain's validation pipeline.
type SubdomainStats struct {
	SubdomainID    string                          `json:"subdomainId"`
	TotalNodes     int                             `json:"totalNodes"`
	ByStatus       map[domain.ValidationStatus]int `json:"byStatus"`
	ValidationRate float64                         `json:"validationRate"`
	QualityScore   int                             `json:"qualityScore"`
}

// Service defines the interface for domain and subdomain operations.
type Service interface {
	CreateDomain(ctx context.Context, input CreateDomainInput) (*domain.Domain, error)
	GetDomain(ctx context.Context, id string) (*domain.Domain, error)
	GetDomainByName(ctx context.Context, name string) (*domain.Domain, error)
	ListDomains(ctx context.Context, query repository.DomainQuery) ([]*domain.Domain, error)
	UpdateDomain(ctx context.Context, id string, input UpdateDomainInput) (*domain.Domain, error)
	// SetDomainStatus moves a domain through its lifecycle
	// (development, beta, active, inactive).
	SetDomainStatus(ctx context.Context, id string, status domain.Status) (*domain.Domain, error)

	CreateSubdomain(ctx context.Context, input CreateSubdomainInput) (*domain.Subdomain, error)
	GetSubdomain(ctx context.Context, id string) (*domain.Subdomain, error)
	ListSubdomains(ctx context.Context, domainID string, status domain.Status) ([]*domain.Subdomain, error)
	UpdateSubdomain(ctx context.Context, id string, input UpdateSubdomainInput) (*domain.Subdomain, error)
	// RecordDataIngestion stamps the subdomain's last ingestion time.
	RecordDataIngestion(ctx context.Context, subdomainID string, at time.Time) error
	// SubdomainStats breaks the subdomain's node population down by
	// validation status.
	SubdomainStats(ctx context.Context, subdomainID string) (*SubdomainStats, error)

	// RecomputeSubdomainCounters rebuilds the subdomain's cached aggregates
	// from its node population and persists them.
	RecomputeSubdomainCounters(ctx context.Context, subdomainID string) (*domain.Subdomain, error)
	// RecomputeDomainCounters rebuilds the domain's cached aggregates from
	// the nodes its subdomains own and persists them.
	RecomputeDomainCounters(ctx context.Context, domainID string) (*domain.Domain, error)
}

type service struct {
	repo repository.Repository
}

// NewService creates a new hierarchy service with the provided repository.
func NewService(repo repository.Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateDomain(ctx context.Context, input CreateDomainInput) (*domain.Domain, error) {
	name := strings.ToLower(strings.TrimSpace(input.Name))
	if !domain.DomainNames[name] {
		return nil, appErrors.NewValidation("unknown domain name: " + input.Name)
	}
	now := time.Now()
	d := &domain.Domain{
		ID:          uuid.New().String(),
		Name:        name,
		Description: input.Description,
		Icon:        input.Icon,
		Color:       input.Color,
		Priority:    input.Priority,
		Status:      domain.StatusDevelopment,
		Metadata:    input.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateDomain(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *service) GetDomain(ctx context.Context, id string) (*domain.Domain, error) {
	d, err := s.repo.FindDomainByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to fetch domain")
	}
	if d == nil {
		return nil, appErrors.NewNotFound("domain not found: " + id)
	}
	return d, nil
}

func (s *service) GetDomainByName(ctx context.Context, name string) (*domain.Domain, error) {
	d, err := s.repo.FindDomainByName(ctx, strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to fetch domain by name")
	}
	if d == nil {
		return nil, appErrors.NewNotFound("domain not found: " + name)
	}
	return d, nil
}

func (s *service) ListDomains(ctx context.Context, query repository.DomainQuery) ([]*domain.Domain, error) {
	if query.Status != "" && !domain.ValidStatus(query.Status) {
		return nil, appErrors.NewValidation("unknown status filter: " + string(query.Status))
	}
	return s.repo.FindDomains(ctx, query)
}

func (s *service) UpdateDomain(ctx context.Context, id string, input UpdateDomainInput) (*domain.Domain, error) {
	d, err := s.GetDomain(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Description != nil {
		d.Description = *input.Description
	}
	if input.Icon != nil {
		d.Icon = *input.Icon
	}
	if input.Color != nil {
		d.Color = *input.Color
	}
	if input.Priority != nil {
		d.Priority = *input.Priority
	}
	if input.Metadata != nil {
		d.Metadata = *input.Metadata
	}
	d.UpdatedAt = time.Now()
	if err := s.repo.UpdateDomain(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *service) SetDomainStatus(ctx context.Context, id string, status domain.Status) (*domain.Domain, error) {
	if !domain.ValidStatus(status) {
		return nil, appErrors.NewValidation("unknown status: " + string(status))
	}
	d, err := s.GetDomain(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Status = status
	d.UpdatedAt = time.Now()
	if err := s.repo.UpdateDomain(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *service) CreateSubdomain(ctx context.Context, input CreateSubdomainInput) (*domain.Subdomain, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, appErrors.NewValidation("subdomain name cannot be empty")
	}
	parent, err := s.GetDomain(ctx, input.DomainID)
	if err != nil {
		return nil, err
	}
	slug := input.Slug
	if slug == "" {
		slug = Slugify(input.Name)
	}
	if slug == "" {
		return nil, appErrors.NewValidation("subdomain slug cannot be empty")
	}
	now := time.Now()
	sd := &domain.Subdomain{
		ID:          uuid.New().String(),
		DomainID:    parent.ID,
		Name:        input.Name,
		Description: input.Description,
		Slug:        slug,
		Icon:        input.Icon,
		Order:       input.Order,
		Status:      domain.StatusActive,
		Metadata:    input.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateSubdomain(ctx, sd); err != nil {
		return nil, err
	}
	return sd, nil
}

func (s *service) GetSubdomain(ctx context.Context, id string) (*domain.Subdomain, error) {
	sd, err := s.repo.FindSubdomainByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to fetch subdomain")
	}
	if sd == nil {
		return nil, appErrors.NewNotFound("subdomain not found: " + id)
	}
	return sd, nil
}

func (s *service) ListSubdomains(ctx context.Context, domainID string, status domain.Status) ([]*domain.Subdomain, error) {
	if _, err := s.GetDomain(ctx, domainID); err != nil {
		return nil, err
	}
	return s.repo.FindSubdomains(ctx, repository.SubdomainQuery{DomainID: domainID, Status: status})
}

func (s *service) UpdateSubdomain(ctx context.Context, id string, input UpdateSubdomainInput) (*domain.Subdomain, error) {
	sd, err := s.GetSubdomain(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Status != nil && !domain.ValidStatus(*input.Status) {
		return nil, appErrors.NewValidation("unknown status: " + string(*input.Status))
	}
	if input.Name != nil {
		sd.Name = *input.Name
	}
	if input.Description != nil {
		sd.Description = *input.Description
	}
	if input.Icon != nil {
		sd.Icon = *input.Icon
	}
	if input.Order != nil {
		sd.Order = *input.Order
	}
	if input.Status != nil {
		sd.Status = *input.Status
	}
	if input.Metadata != nil {
		sd.Metadata = *input.Metadata
	}
	sd.UpdatedAt = time.Now()
	if err := s.repo.UpdateSubdomain(ctx, sd); err != nil {
		return nil, err
	}
	return sd, nil
}

func (s *service) RecordDataIngestion(ctx context.Context, subdomainID string, at time.Time) error {
	if _, err := s.GetSubdomain(ctx, subdomainID); err != nil {
		return err
	}
	return s.repo.RecordSubdomainIngestion(ctx, subdomainID, at)
}

func (s *service) SubdomainStats(ctx context.Context, subdomainID string) (*SubdomainStats, error) {
	sd, err := s.GetSubdomain(ctx, subdomainID)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountNodesByStatus(ctx, subdomainID)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to count nodes by status")
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	rate := 0.0
	if total > 0 {
		rate = float64(counts[domain.ValidationApproved]) / float64(total)
	}
	return &SubdomainStats{
		SubdomainID:    subdomainID,
		TotalNodes:     total,
		ByStatus:       counts,
		ValidationRate: rate,
		QualityScore:   sd.QualityScore,
	}, nil
}

// RecomputeSubdomainCounters rebuilds totalNodes, validatedNodes and
// qualityScore from the live node population. Quality is the rounded mean
// feedback score of approved nodes; zero when none are approved.
func (s *service) RecomputeSubdomainCounters(ctx context.Context, subdomainID string) (*domain.Subdomain, error) {
	sd, err := s.GetSubdomain(ctx, subdomainID)
	if err != nil {
		return nil, err
	}
	nodes, err := s.repo.FindNodes(ctx, repository.NodeQuery{SubdomainID: subdomainID})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list subdomain nodes")
	}
	total := len(nodes)
	validated := 0
	scoreSum := 0
	for _, n := range nodes {
		if n.Validation.Status == domain.ValidationApproved {
			validated++
			scoreSum += n.Stats.FeedbackScore
		}
	}
	quality := 0
	if validated > 0 {
		quality = int(math.Round(float64(scoreSum) / float64(validated)))
	}
	if err := s.repo.UpdateSubdomainCounters(ctx, subdomainID, total, validated, quality); err != nil {
		return nil, err
	}
	sd.TotalNodes = total
	sd.ValidatedNodes = validated
	sd.QualityScore = quality
	return sd, nil
}

// RecomputeDomainCounters rebuilds the domain aggregates from the live
// node population: node total is the sum over subdomains, quality the
// rounded mean feedback score of every approved node the domain owns.
func (s *service) RecomputeDomainCounters(ctx context.Context, domainID string) (*domain.Domain, error) {
	d, err := s.GetDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	subdomains, err := s.repo.FindSubdomains(ctx, repository.SubdomainQuery{DomainID: domainID})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list subdomains")
	}
	total := 0
	scoreSum := 0
	approved := 0
	for _, sd := range subdomains {
		total += sd.TotalNodes
		nodes, err := s.repo.FindNodes(ctx, repository.NodeQuery{
			SubdomainID: sd.ID,
			Status:      domain.ValidationApproved,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, "failed to list subdomain nodes")
		}
		for _, n := range nodes {
			scoreSum += n.Stats.FeedbackScore
			approved++
		}
	}
	quality := 0
	if approved > 0 {
		quality = int(math.Round(float64(scoreSum) / float64(approved)))
	}
	if err := s.repo.UpdateDomainCounters(ctx, domainID, total, quality); err != nil {
		return nil, err
	}
	d.TotalNodes = total
	d.QualityScore = quality
	return d, nil
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a display name.
func Slugify(name string) string {
	slug := slugCleaner.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(slug, "-")
}
