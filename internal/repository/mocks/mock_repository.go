// Package mocks provides an in-memory implementation of the repository
// interfaces for testing. It mirrors the DynamoDB implementation's semantics:
// conflict errors on duplicate natural keys, (nil, nil) on missing lookups,
// atomic appends under a mutex.
package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"kgraph-backend/internal/domain"
	"kgraph-backend/internal/repository"
	appErrors "kgraph-backend/pkg/errors"
)

// MockRepository provides an in-memory implementation of the Repository
// interface. Useful for unit testing services without a real database.
type MockRepository struct {
	mu sync.RWMutex

	domains       map[string]*domain.Domain       // domainID -> Domain
	subdomains    map[string]*domain.Subdomain    // subdomainID -> Subdomain
	nodes         map[string]*domain.Node         // nodeID -> Node
	relationships map[string]*domain.Relationship // relationshipID -> Relationship
	ingestions    map[string]*domain.Ingestion    // ingestionID -> Ingestion
	modelVersions map[string]*domain.ModelVersion // versionNumber -> ModelVersion

	// For testing error scenarios
	shouldFailOn map[string]error
}

// NewMockRepository creates a new mock repository instance.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		domains:       make(map[string]*domain.Domain),
		subdomains:    make(map[string]*domain.Subdomain),
		nodes:         make(map[string]*domain.Node),
		relationships: make(map[string]*domain.Relationship),
		ingestions:    make(map[string]*domain.Ingestion),
		modelVersions: make(map[string]*domain.ModelVersion),
		shouldFailOn:  make(map[string]error),
	}
}

// SetError configures the mock to return an error for a specific operation.
func (m *MockRepository) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn[operation] = err
}

// ClearError removes a configured error for an operation.
func (m *MockRepository) ClearError(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.shouldFailOn, operation)
}

func (m *MockRepository) failure(operation string) error {
	return m.shouldFailOn[operation]
}

// --- DomainRepository ---

func (m *MockRepository) CreateDomain(ctx context.Context, d *domain.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateDomain"); err != nil {
		return err
	}
	for _, existing := range m.domains {
		if existing.Name == d.Name {
			return appErrors.NewConflict("domain name already exists: " + d.Name)
		}
	}
	stored := *d
	m.domains[d.ID] = &stored
	return nil
}

func (m *MockRepository) FindDomainByID(ctx context.Context, id string) (*domain.Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindDomainByID"); err != nil {
		return nil, err
	}
	d, ok := m.domains[id]
	if !ok {
		return nil, nil
	}
	copied := *d
	return &copied, nil
}

func (m *MockRepository) FindDomainByName(ctx context.Context, name string) (*domain.Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindDomainByName"); err != nil {
		return nil, err
	}
	for _, d := range m.domains {
		if d.Name == name {
			copied := *d
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) FindDomains(ctx context.Context, query repository.DomainQuery) ([]*domain.Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindDomains"); err != nil {
		return nil, err
	}
	var out []*domain.Domain
	for _, d := range m.domains {
		if query.Status != "" && d.Status != query.Status {
			continue
		}
		if query.Priority != 0 && d.Priority != query.Priority {
			continue
		}
		copied := *d
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MockRepository) UpdateDomain(ctx context.Context, d *domain.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateDomain"); err != nil {
		return err
	}
	if _, ok := m.domains[d.ID]; !ok {
		return appErrors.NewNotFound("domain not found: " + d.ID)
	}
	stored := *d
	m.domains[d.ID] = &stored
	return nil
}

func (m *MockRepository) UpdateDomainCounters(ctx context.Context, id string, totalNodes, qualityScore int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateDomainCounters"); err != nil {
		return err
	}
	d, ok := m.domains[id]
	if !ok {
		return appErrors.NewNotFound("domain not found: " + id)
	}
	d.TotalNodes = totalNodes
	d.QualityScore = qualityScore
	d.UpdatedAt = time.Now()
	return nil
}

// --- SubdomainRepository ---

func (m *MockRepository) CreateSubdomain(ctx context.Context, s *domain.Subdomain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateSubdomain"); err != nil {
		return err
	}
	for _, existing := range m.subdomains {
		if existing.DomainID == s.DomainID && existing.Slug == s.Slug {
			return appErrors.NewConflict("subdomain slug already exists: " + s.Slug)
		}
	}
	stored := *s
	m.subdomains[s.ID] = &stored
	return nil
}

func (m *MockRepository) FindSubdomainByID(ctx context.Context, id string) (*domain.Subdomain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindSubdomainByID"); err != nil {
		return nil, err
	}
	s, ok := m.subdomains[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *MockRepository) FindSubdomains(ctx context.Context, query repository.SubdomainQuery) ([]*domain.Subdomain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindSubdomains"); err != nil {
		return nil, err
	}
	var out []*domain.Subdomain
	for _, s := range m.subdomains {
		if s.DomainID != query.DomainID {
			continue
		}
		if query.Status != "" && s.Status != query.Status {
			continue
		}
		copied := *s
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MockRepository) UpdateSubdomain(ctx context.Context, s *domain.Subdomain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateSubdomain"); err != nil {
		return err
	}
	if _, ok := m.subdomains[s.ID]; !ok {
		return appErrors.NewNotFound("subdomain not found: " + s.ID)
	}
	stored := *s
	m.subdomains[s.ID] = &stored
	return nil
}

func (m *MockRepository) UpdateSubdomainCounters(ctx context.Context, id string, totalNodes, validatedNodes, qualityScore int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateSubdomainCounters"); err != nil {
		return err
	}
	s, ok := m.subdomains[id]
	if !ok {
		return appErrors.NewNotFound("subdomain not found: " + id)
	}
	s.TotalNodes = totalNodes
	s.ValidatedNodes = validatedNodes
	s.QualityScore = qualityScore
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MockRepository) RecordSubdomainIngestion(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("RecordSubdomainIngestion"); err != nil {
		return err
	}
	s, ok := m.subdomains[id]
	if !ok {
		return appErrors.NewNotFound("subdomain not found: " + id)
	}
	s.LastDataIngestion = &at
	return nil
}

// --- NodeRepository ---

func (m *MockRepository) CreateNode(ctx context.Context, n *domain.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateNode"); err != nil {
		return err
	}
	stored := *n
	m.nodes[n.ID] = &stored
	return nil
}

func (m *MockRepository) FindNodeByID(ctx context.Context, id string) (*domain.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindNodeByID"); err != nil {
		return nil, err
	}
	n, ok := m.nodes[id]
	if !ok {
		return nil, nil
	}
	copied := *n
	return &copied, nil
}

func (m *MockRepository) FindNodeByTitle(ctx context.Context, subdomainID, title string) (*domain.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindNodeByTitle"); err != nil {
		return nil, err
	}
	for _, n := range m.nodes {
		if n.SubdomainID == subdomainID && n.Title == title {
			copied := *n
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) FindNodes(ctx context.Context, query repository.NodeQuery) ([]*domain.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindNodes"); err != nil {
		return nil, err
	}
	var out []*domain.Node
	for _, n := range m.nodes {
		if n.SubdomainID != query.SubdomainID {
			continue
		}
		if query.Status != "" && n.Validation.Status != query.Status {
			continue
		}
		if query.Category != "" && n.Category != query.Category {
			continue
		}
		if query.ContentType != "" && n.ContentType != query.ContentType {
			continue
		}
		copied := *n
		out = append(out, &copied)
	}
	sortNodesByScore(out)
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func (m *MockRepository) FindNodesByIDs(ctx context.Context, ids []string) ([]*domain.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindNodesByIDs"); err != nil {
		return nil, err
	}
	var out []*domain.Node
	for _, id := range ids {
		if n, ok := m.nodes[id]; ok {
			copied := *n
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *MockRepository) FindNodesByKeywords(ctx context.Context, keywords []string) ([]*domain.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindNodesByKeywords"); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		want[kw] = true
	}
	var out []*domain.Node
	for _, n := range m.nodes {
		if n.Validation.Status != domain.ValidationApproved {
			continue
		}
		for _, kw := range n.Keywords {
			if want[kw] {
				copied := *n
				out = append(out, &copied)
				break
			}
		}
	}
	return out, nil
}

func (m *MockRepository) FindExpiringNodes(ctx context.Context, from, until time.Time) ([]*domain.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindExpiringNodes"); err != nil {
		return nil, err
	}
	var out []*domain.Node
	for _, n := range m.nodes {
		if n.ExpiryDate == nil {
			continue
		}
		if n.ExpiryDate.Before(from) || n.ExpiryDate.After(until) {
			continue
		}
		copied := *n
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiryDate.Before(*out[j].ExpiryDate)
	})
	return out, nil
}

func (m *MockRepository) CountNodesByStatus(ctx context.Context, subdomainID string) (map[domain.ValidationStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("CountNodesByStatus"); err != nil {
		return nil, err
	}
	counts := make(map[domain.ValidationStatus]int)
	for _, n := range m.nodes {
		if n.SubdomainID == subdomainID {
			counts[n.Validation.Status]++
		}
	}
	return counts, nil
}

func (m *MockRepository) AppendValidation(ctx context.Context, nodeID string, entry domain.ValidationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("AppendValidation"); err != nil {
		return err
	}
	n, ok := m.nodes[nodeID]
	if !ok {
		return appErrors.NewNotFound("node not found: " + nodeID)
	}
	n.Validation.Validations = append(n.Validation.Validations, entry)
	n.Validation.Status = entry.Status
	n.Validation.Score = entry.Score
	switch entry.Status {
	case domain.ValidationApproved:
		n.Validation.ApprovedBy = entry.ValidatedBy
		at := entry.ValidatedAt
		n.Validation.ApprovedAt = &at
	case domain.ValidationRejected:
		n.Validation.RejectionReason = entry.Comments
	}
	n.UpdatedAt = time.Now()
	return nil
}

func (m *MockRepository) UpdateNodeContent(ctx context.Context, nodeID string, snapshot domain.ContentSnapshot, newContent string, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateNodeContent"); err != nil {
		return err
	}
	n, ok := m.nodes[nodeID]
	if !ok {
		return appErrors.NewNotFound("node not found: " + nodeID)
	}
	if n.Version != expectedVersion {
		return appErrors.NewConflict("node version changed concurrently")
	}
	n.PreviousVersions = append(n.PreviousVersions, snapshot)
	n.Content = newContent
	n.Version++
	n.UpdatedAt = time.Now()
	return nil
}

func (m *MockRepository) AppendFeedback(ctx context.Context, nodeID string, entry domain.FeedbackEntry, newScore int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("AppendFeedback"); err != nil {
		return err
	}
	n, ok := m.nodes[nodeID]
	if !ok {
		return appErrors.NewNotFound("node not found: " + nodeID)
	}
	n.Stats.Feedback = append(n.Stats.Feedback, entry)
	n.Stats.FeedbackScore = newScore
	n.UpdatedAt = time.Now()
	return nil
}

func (m *MockRepository) IncrementViewCount(ctx context.Context, nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("IncrementViewCount"); err != nil {
		return err
	}
	n, ok := m.nodes[nodeID]
	if !ok {
		return appErrors.NewNotFound("node not found: " + nodeID)
	}
	n.Stats.ViewCount++
	return nil
}

func (m *MockRepository) IncrementModelUsage(ctx context.Context, nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("IncrementModelUsage"); err != nil {
		return err
	}
	n, ok := m.nodes[nodeID]
	if !ok {
		return appErrors.NewNotFound("node not found: " + nodeID)
	}
	n.Stats.UsageInModels++
	return nil
}

// --- RelationshipRepository ---

func (m *MockRepository) CreateRelationship(ctx context.Context, r *domain.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateRelationship"); err != nil {
		return err
	}
	stored := *r
	m.relationships[r.ID] = &stored
	return nil
}

func (m *MockRepository) FindRelationshipByID(ctx context.Context, id string) (*domain.Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindRelationshipByID"); err != nil {
		return nil, err
	}
	r, ok := m.relationships[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (m *MockRepository) FindRelationships(ctx context.Context, query repository.RelationshipQuery) ([]*domain.Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindRelationships"); err != nil {
		return nil, err
	}
	var out []*domain.Relationship
	for _, r := range m.relationships {
		if query.SourceNodeID != "" && r.SourceNodeID != query.SourceNodeID {
			continue
		}
		if query.TargetNodeID != "" && r.TargetNodeID != query.TargetNodeID {
			continue
		}
		if query.EitherNodeID != "" && r.SourceNodeID != query.EitherNodeID && r.TargetNodeID != query.EitherNodeID {
			continue
		}
		if query.Type != "" && r.Type != query.Type {
			continue
		}
		if query.Status != "" && r.Status != query.Status {
			continue
		}
		copied := *r
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Confidence > out[j].Confidence
	})
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func (m *MockRepository) UpdateRelationship(ctx context.Context, r *domain.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateRelationship"); err != nil {
		return err
	}
	if _, ok := m.relationships[r.ID]; !ok {
		return appErrors.NewNotFound("relationship not found: " + r.ID)
	}
	stored := *r
	m.relationships[r.ID] = &stored
	return nil
}

func (m *MockRepository) AllRelationships(ctx context.Context) ([]*domain.Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("AllRelationships"); err != nil {
		return nil, err
	}
	out := make([]*domain.Relationship, 0, len(m.relationships))
	for _, r := range m.relationships {
		copied := *r
		out = append(out, &copied)
	}
	return out, nil
}

// --- IngestionRepository ---

func (m *MockRepository) CreateIngestion(ctx context.Context, ing *domain.Ingestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateIngestion"); err != nil {
		return err
	}
	stored := *ing
	m.ingestions[ing.ID] = &stored
	return nil
}

func (m *MockRepository) FindIngestionByID(ctx context.Context, id string) (*domain.Ingestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindIngestionByID"); err != nil {
		return nil, err
	}
	ing, ok := m.ingestions[id]
	if !ok {
		return nil, nil
	}
	copied := *ing
	return &copied, nil
}

func (m *MockRepository) ApplyBatch(ctx context.Context, id string, delta domain.ProcessedCounts, nodeIDs []string, entry domain.LogEntry, status domain.IngestionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ApplyBatch"); err != nil {
		return err
	}
	ing, ok := m.ingestions[id]
	if !ok {
		return appErrors.NewNotFound("ingestion record not found: " + id)
	}
	ing.NodesProcessed.Total += delta.Total
	ing.NodesProcessed.Successful += delta.Successful
	ing.NodesProcessed.Failed += delta.Failed
	ing.NodesProcessed.Skipped += delta.Skipped
	ing.Deduplication.DuplicatesFound += delta.Skipped
	ing.NodeIDs = append(ing.NodeIDs, nodeIDs...)
	ing.Logs = append(ing.Logs, entry)
	ing.Status = status
	ing.UpdatedAt = time.Now()
	return nil
}

func (m *MockRepository) UpdateIngestion(ctx context.Context, ing *domain.Ingestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateIngestion"); err != nil {
		return err
	}
	if _, ok := m.ingestions[ing.ID]; !ok {
		return appErrors.NewNotFound("ingestion record not found: " + ing.ID)
	}
	stored := *ing
	m.ingestions[ing.ID] = &stored
	return nil
}

func (m *MockRepository) FindIngestionsByDomain(ctx context.Context, domainID string, limit int) ([]*domain.Ingestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindIngestionsByDomain"); err != nil {
		return nil, err
	}
	var out []*domain.Ingestion
	for _, ing := range m.ingestions {
		if ing.DomainID == domainID {
			copied := *ing
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- ModelVersionRepository ---

func (m *MockRepository) CreateModelVersion(ctx context.Context, mv *domain.ModelVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateModelVersion"); err != nil {
		return err
	}
	if _, ok := m.modelVersions[mv.VersionNumber]; ok {
		return appErrors.NewConflict("model version already exists: " + mv.VersionNumber)
	}
	stored := *mv
	m.modelVersions[mv.VersionNumber] = &stored
	return nil
}

func (m *MockRepository) FindModelVersion(ctx context.Context, versionNumber string) (*domain.ModelVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindModelVersion"); err != nil {
		return nil, err
	}
	mv, ok := m.modelVersions[versionNumber]
	if !ok {
		return nil, nil
	}
	copied := *mv
	return &copied, nil
}

func (m *MockRepository) FindModelVersions(ctx context.Context, query repository.ModelVersionQuery) ([]*domain.ModelVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindModelVersions"); err != nil {
		return nil, err
	}
	var out []*domain.ModelVersion
	for _, mv := range m.modelVersions {
		if query.Status != "" && mv.Status != query.Status {
			continue
		}
		copied := *mv
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].ReleaseDate, out[j].ReleaseDate
		switch {
		case ri == nil && rj == nil:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		case ri == nil:
			return false
		case rj == nil:
			return true
		default:
			return ri.After(*rj)
		}
	})
	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockRepository) FindStableVersion(ctx context.Context) (*domain.ModelVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FindStableVersion"); err != nil {
		return nil, err
	}
	for _, mv := range m.modelVersions {
		if mv.Status == domain.ModelStable {
			copied := *mv
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) UpdateModelVersion(ctx context.Context, mv *domain.ModelVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateModelVersion"); err != nil {
		return err
	}
	if _, ok := m.modelVersions[mv.VersionNumber]; !ok {
		return appErrors.NewNotFound("model version not found: " + mv.VersionNumber)
	}
	stored := *mv
	m.modelVersions[mv.VersionNumber] = &stored
	return nil
}

func (m *MockRepository) PromoteStable(ctx context.Context, versionNumber string, releaseDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("PromoteStable"); err != nil {
		return err
	}
	target, ok := m.modelVersions[versionNumber]
	if !ok {
		return appErrors.NewNotFound("model version not found: " + versionNumber)
	}
	// Both writes happen under the same lock, mirroring the transactional
	// promotion in the DynamoDB implementation.
	for _, mv := range m.modelVersions {
		if mv.Status == domain.ModelStable && mv.VersionNumber != versionNumber {
			mv.Status = domain.ModelDeprecated
			mv.UpdatedAt = time.Now()
		}
	}
	target.Status = domain.ModelStable
	rd := releaseDate
	target.ReleaseDate = &rd
	target.UpdatedAt = time.Now()
	return nil
}

func sortNodesByScore(nodes []*domain.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Stats.FeedbackScore != nodes[j].Stats.FeedbackScore {
			return nodes[i].Stats.FeedbackScore > nodes[j].Stats.FeedbackScore
		}
		return nodes[i].CreatedAt.After(nodes[j].CreatedAt)
	})
}
