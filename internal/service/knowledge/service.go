// Package knowledge provides business logic for knowledge nodes: creation
// with curation defaults, the validation workflow, versioned content
// updates, feedback scoring and search.
package knowledge

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/repository"
	"kgraph-backend/internal/service/hierarchy"
	appErrors "kgraph-backend/pkg/errors"

	"github.com/google/uuid"
)

const (
	defaultCredibility     = 50
	defaultLanguage        = "es"
	defaultDifficulty      = "intermediate"
	defaultConfidentiality = "public"

	// DefaultSearchLimit bounds keyword search when no limit is given.
	DefaultSearchLimit = 10
)

// CreateNodeInput carries the caller-supplied fields for a new node.
type CreateNodeInput struct {
	SubdomainID    string
	Category       string
	Title          string
	Content        string
	Summary        string
	Keywords       []string
	Examples       []string
	RelatedNodeIDs []string
	ContentType    domain.ContentType
	StructuredData map[string]interface{}
	Source         domain.Source
	EffectiveDate  *time.Time
	ExpiryDate     *time.Time
	Metadata       domain.NodeMetadata
}

// ValidateInput carries one validation decision on a node.
type ValidateInput struct {
	ValidatedBy string
	Status      domain.ValidationStatus
	Score       int
	Comments    string
}

// SearchResult pairs a node with how many of the query keywords it matched.
type SearchResult struct {
	Node    *domain.Node `json:"node"`
	Matches int          `json:"matches"`
}

// Service defines the interface for node-related business operations.
type Service interface {
	// CreateNode stores a new node with curation defaults applied: pending
	// validation, version 1, empty history.
	CreateNode(ctx context.Context, input CreateNodeInput) (*domain.Node, error)
	GetNode(ctx context.Context, id string) (*domain.Node, error)
	ListNodes(ctx context.Context, query repository.NodeQuery) ([]*domain.Node, error)

	// Validate appends one decision to the node's validation history and
	// moves its current status. Any node may be re-validated; the history
	// keeps every decision.
	Validate(ctx context.Context, nodeID string, input ValidateInput) (*domain.Node, error)
	// UpdateContent archives the current content and installs the new body,
	// retrying on concurrent version conflicts.
	UpdateContent(ctx context.Context, nodeID, newContent, modifiedBy string) (*domain.Node, error)
	// AddFeedback records a 0-5 rating and recomputes the node's cached
	// feedback score as round(mean(ratings) * 20).
	AddFeedback(ctx context.Context, nodeID, userID string, rating int, comment string) (*domain.Node, error)

	// Search returns approved nodes ranked by keyword match count, then
	// feedback score. limit <= 0 uses DefaultSearchLimit.
	Search(ctx context.Context, keywords []string, limit int) ([]SearchResult, error)
	// RelatedNodes returns the approved nodes referenced by the node's
	// related-node list.
	RelatedNodes(ctx context.Context, nodeID string) ([]*domain.Node, error)
	// ExpiringNodes returns nodes whose expiry date falls within the next
	// withinDays days, soonest first.
	ExpiringNodes(ctx context.Context, withinDays int) ([]*domain.Node, error)

	RecordView(ctx context.Context, nodeID string) error
	// RecordModelUsage counts a node's inclusion in a model training set.
	RecordModelUsage(ctx context.Context, nodeID string) error
}

type service struct {
	repo      repository.Repository
	hierarchy hierarchy.Service
}

// NewService creates a new knowledge service. The hierarchy service is used
// to keep subdomain and domain aggregates in sync with node changes.
func NewService(repo repository.Repository, hierarchySvc hierarchy.Service) Service {
	return &service{repo: repo, hierarchy: hierarchySvc}
}

func (s *service) CreateNode(ctx context.Context, input CreateNodeInput) (*domain.Node, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, appErrors.NewValidation("node title cannot be empty")
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, appErrors.NewValidation("node content cannot be empty")
	}
	contentType := input.ContentType
	if contentType == "" {
		contentType = domain.ContentText
	}
	if !domain.ValidContentType(contentType) {
		return nil, appErrors.NewValidation("unknown content type: " + string(input.ContentType))
	}
	sd, err := s.hierarchy.GetSubdomain(ctx, input.SubdomainID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	source := input.Source
	if source.Credibility == 0 {
		source.Credibility = defaultCredibility
	}
	metadata := input.Metadata
	if metadata.Language == "" {
		metadata.Language = defaultLanguage
	}
	if metadata.Difficulty == "" {
		metadata.Difficulty = defaultDifficulty
	}
	if metadata.Confidentiality == "" {
		metadata.Confidentiality = defaultConfidentiality
	}
	effective := now
	if input.EffectiveDate != nil {
		effective = *input.EffectiveDate
	}

	node := &domain.Node{
		ID:             uuid.New().String(),
		SubdomainID:    sd.ID,
		Category:       input.Category,
		Title:          input.Title,
		Content:        input.Content,
		Summary:        input.Summary,
		Keywords:       input.Keywords,
		Examples:       input.Examples,
		RelatedNodeIDs: input.RelatedNodeIDs,
		ContentType:    contentType,
		StructuredData: input.StructuredData,
		Source:         source,
		Validation: domain.ValidationRecord{
			Status:      domain.ValidationPending,
			Validations: []domain.ValidationEntry{},
		},
		EffectiveDate:    effective,
		ExpiryDate:       input.ExpiryDate,
		Version:          1,
		PreviousVersions: []domain.ContentSnapshot{},
		Metadata:         metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.CreateNode(ctx, node); err != nil {
		return nil, appErrors.Wrap(err, "failed to create node in repository")
	}
	if err := s.rollupCounters(ctx, sd.ID, sd.DomainID); err != nil {
		return nil, err
	}
	return node, nil
}

func (s *service) GetNode(ctx context.Context, id string) (*domain.Node, error) {
	node, err := s.repo.FindNodeByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to fetch node")
	}
	if node == nil {
		return nil, appErrors.NewNotFound("node not found: " + id)
	}
	return node, nil
}

func (s *service) ListNodes(ctx context.Context, query repository.NodeQuery) ([]*domain.Node, error) {
	if query.Status != "" && !domain.ValidValidationStatus(query.Status) {
		return nil, appErrors.NewValidation("unknown validation status filter: " + string(query.Status))
	}
	return s.repo.FindNodes(ctx, query)
}

func (s *service) Validate(ctx context.Context, nodeID string, input ValidateInput) (*domain.Node, error) {
	switch input.Status {
	case domain.ValidationApproved, domain.ValidationRejected, domain.ValidationNeedsReview:
	default:
		return nil, appErrors.NewValidation("validation status must be approved, rejected or needs_review")
	}
	if input.Score < 0 || input.Score > 100 {
		return nil, appErrors.NewValidation("validation score must be between 0 and 100")
	}
	if input.ValidatedBy == "" {
		return nil, appErrors.NewValidation("validatedBy is required")
	}
	node, err := s.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	entry := domain.ValidationEntry{
		ValidatedBy: input.ValidatedBy,
		ValidatedAt: time.Now(),
		Status:      input.Status,
		Comments:    input.Comments,
		Score:       input.Score,
	}
	if err := s.repo.AppendValidation(ctx, nodeID, entry); err != nil {
		return nil, err
	}

	sd, err := s.hierarchy.GetSubdomain(ctx, node.SubdomainID)
	if err != nil {
		return nil, err
	}
	if err := s.rollupCounters(ctx, sd.ID, sd.DomainID); err != nil {
		return nil, err
	}
	return s.GetNode(ctx, nodeID)
}

const (
	maxRetries = 3
	baseDelay  = 100 * time.Millisecond
)

// UpdateContent performs an optimistic update: the snapshot and version
// bump are conditioned on the version read here, and conflicts retry with
// exponential backoff.
func (s *service) UpdateContent(ctx context.Context, nodeID, newContent, modifiedBy string) (*domain.Node, error) {
	if strings.TrimSpace(newContent) == "" {
		return nil, appErrors.NewValidation("node content cannot be empty")
	}
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		node, err := s.GetNode(ctx, nodeID)
		if err != nil {
			return nil, err
		}
		snapshot := domain.ContentSnapshot{
			Version:    node.Version,
			Content:    node.Content,
			ModifiedBy: modifiedBy,
			ModifiedAt: time.Now(),
		}
		err = s.repo.UpdateNodeContent(ctx, nodeID, snapshot, newContent, node.Version)
		if err == nil {
			return s.GetNode(ctx, nodeID)
		}
		if appErrors.IsConflict(err) && attempt < maxRetries-1 {
			time.Sleep(baseDelay * time.Duration(1<<attempt)) // 100ms, 200ms, 400ms
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *service) AddFeedback(ctx context.Context, nodeID, userID string, rating int, comment string) (*domain.Node, error) {
	if rating < 0 || rating > 5 {
		return nil, appErrors.NewValidation("rating must be between 0 and 5")
	}
	node, err := s.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	entry := domain.FeedbackEntry{
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		Timestamp: time.Now(),
	}
	sum := rating
	for _, f := range node.Stats.Feedback {
		sum += f.Rating
	}
	count := len(node.Stats.Feedback) + 1
	// Mean rating on the 0-5 scale mapped onto 0-100.
	newScore := int(math.Round(float64(sum) / float64(count) * 20))

	if err := s.repo.AppendFeedback(ctx, nodeID, entry, newScore); err != nil {
		return nil, err
	}

	sd, err := s.hierarchy.GetSubdomain(ctx, node.SubdomainID)
	if err != nil {
		return nil, err
	}
	if err := s.rollupCounters(ctx, sd.ID, sd.DomainID); err != nil {
		return nil, err
	}
	return s.GetNode(ctx, nodeID)
}

func (s *service) Search(ctx context.Context, keywords []string, limit int) ([]SearchResult, error) {
	if len(keywords) == 0 {
		return nil, appErrors.NewValidation("at least one keyword is required")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	normalized := make([]string, 0, len(keywords))
	want := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || want[kw] {
			continue
		}
		want[kw] = true
		normalized = append(normalized, kw)
	}
	nodes, err := s.repo.FindNodesByKeywords(ctx, normalized)
	if err != nil {
		return nil, appErrors.Wrap(err, "keyword search failed")
	}
	results := make([]SearchResult, 0, len(nodes))
	for _, n := range nodes {
		matches := 0
		for _, kw := range n.Keywords {
			if want[strings.ToLower(kw)] {
				matches++
			}
		}
		results = append(results, SearchResult{Node: n, Matches: matches})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Matches != results[j].Matches {
			return results[i].Matches > results[j].Matches
		}
		return results[i].Node.Stats.FeedbackScore > results[j].Node.Stats.FeedbackScore
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *service) RelatedNodes(ctx context.Context, nodeID string) ([]*domain.Node, error) {
	node, err := s.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if len(node.RelatedNodeIDs) == 0 {
		return nil, nil
	}
	related, err := s.repo.FindNodesByIDs(ctx, node.RelatedNodeIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to fetch related nodes")
	}
	var approved []*domain.Node
	for _, n := range related {
		if n.Validation.Status == domain.ValidationApproved {
			approved = append(approved, n)
		}
	}
	return approved, nil
}

func (s *service) ExpiringNodes(ctx context.Context, withinDays int) ([]*domain.Node, error) {
	if withinDays <= 0 {
		return nil, appErrors.NewValidation("withinDays must be positive")
	}
	now := time.Now()
	return s.repo.FindExpiringNodes(ctx, now, now.AddDate(0, 0, withinDays))
}

func (s *service) RecordView(ctx context.Context, nodeID string) error {
	return s.repo.IncrementViewCount(ctx, nodeID)
}

func (s *service) RecordModelUsage(ctx context.Context, nodeID string) error {
	return s.repo.IncrementModelUsage(ctx, nodeID)
}

// rollupCounters refreshes the cached aggregates on the subdomain and its
// parent domain after a node-level change.
func (s *service) rollupCounters(ctx context.Context, subdomainID, domainID string) error {
	if _, err := s.hierarchy.RecomputeSubdomainCounters(ctx, subdomainID); err != nil {
		return appErrors.Wrap(err, "failed to refresh subdomain counters")
	}
	if _, err := s.hierarchy.RecomputeDomainCounters(ctx, domainID); err != nil {
		return appErrors.Wrap(err, "failed to refresh domain counters")
	}
	return nil
}
