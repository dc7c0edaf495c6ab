// Package repository defines the data access interfaces for the knowledge
// graph's persistence layer. Implementations exist for DynamoDB (ddb) and
// in-memory storage (mocks, used by tests and local development).
//
// Lookup methods return (nil, nil) when the entity does not exist; services
// translate that into a NotFound business error. Uniqueness violations and
// optimistic lock failures surface as Conflict errors from pkg/errors.
package repository

import (
	"context"
	"time"

	"kgraph-backend/internal/domain"
)

// DomainRepository persists top-level knowledge domains.
type DomainRepository interface {
	// CreateDomain stores a new domain. Returns a Conflict error when the
	// domain name is already taken.
	CreateDomain(ctx context.Context, d *domain.Domain) error
	FindDomainByID(ctx context.Context, id string) (*domain.Domain, error)
	FindDomainByName(ctx context.Context, name string) (*domain.Domain, error)
	FindDomains(ctx context.Context, query DomainQuery) ([]*domain.Domain, error)
	UpdateDomain(ctx context.Context, d *domain.Domain) error
	// UpdateDomainCounters overwrites only the cached aggregate fields.
	UpdateDomainCounters(ctx context.Context, id string, totalNodes, qualityScore int) error
}

// SubdomainRepository persists subdivisions of a domain.
type SubdomainRepository interface {
	// CreateSubdomain stores a new subdomain. Returns a Conflict error when
	// the (domainId, slug) pair is already taken.
	CreateSubdomain(ctx context.Context, s *domain.Subdomain) error
	FindSubdomainByID(ctx context.Context, id string) (*domain.Subdomain, error)
	FindSubdomains(ctx context.Context, query SubdomainQuery) ([]*domain.Subdomain, error)
	UpdateSubdomain(ctx context.Context, s *domain.Subdomain) error
	UpdateSubdomainCounters(ctx context.Context, id string, totalNodes, validatedNodes, qualityScore int) error
	RecordSubdomainIngestion(ctx context.Context, id string, at time.Time) error
}

// NodeRepository persists atomic knowledge units.
type NodeRepository interface {
	CreateNode(ctx context.Context, n *domain.Node) error
	FindNodeByID(ctx context.Context, id string) (*domain.Node, error)
	// FindNodeByTitle resolves the (title, subdomain) natural key used for
	// duplicate detection during ingestion.
	FindNodeByTitle(ctx context.Context, subdomainID, title string) (*domain.Node, error)
	FindNodes(ctx context.Context, query NodeQuery) ([]*domain.Node, error)
	FindNodesByIDs(ctx context.Context, ids []string) ([]*domain.Node, error)
	// FindNodesByKeywords returns approved nodes whose keyword set intersects
	// the given keywords.
	FindNodesByKeywords(ctx context.Context, keywords []string) ([]*domain.Node, error)
	FindExpiringNodes(ctx context.Context, from, until time.Time) ([]*domain.Node, error)
	CountNodesByStatus(ctx context.Context, subdomainID string) (map[domain.ValidationStatus]int, error)

	// AppendValidation atomically appends one entry to the node's validation
	// history and updates the current status/score. Concurrent appends on the
	// same node must not lose entries.
	AppendValidation(ctx context.Context, nodeID string, entry domain.ValidationEntry) error
	// UpdateNodeContent archives the given snapshot, replaces the content and
	// increments the version, conditioned on the stored version still being
	// expectedVersion. Returns a Conflict error when the condition fails.
	UpdateNodeContent(ctx context.Context, nodeID string, snapshot domain.ContentSnapshot, newContent string, expectedVersion int) error
	// AppendFeedback atomically appends a feedback entry and overwrites the
	// cached feedback score.
	AppendFeedback(ctx context.Context, nodeID string, entry domain.FeedbackEntry, newScore int) error
	IncrementViewCount(ctx context.Context, nodeID string) error
	IncrementModelUsage(ctx context.Context, nodeID string) error
}

// RelationshipRepository persists graph edges.
type RelationshipRepository interface {
	CreateRelationship(ctx context.Context, r *domain.Relationship) error
	FindRelationshipByID(ctx context.Context, id string) (*domain.Relationship, error)
	FindRelationships(ctx context.Context, query RelationshipQuery) ([]*domain.Relationship, error)
	UpdateRelationship(ctx context.Context, r *domain.Relationship) error
	// AllRelationships returns every edge; used for aggregate graph
	// statistics only.
	AllRelationships(ctx context.Context) ([]*domain.Relationship, error)
}

// IngestionRepository persists batch-intake bookkeeping records.
type IngestionRepository interface {
	CreateIngestion(ctx context.Context, ing *domain.Ingestion) error
	FindIngestionByID(ctx context.Context, id string) (*domain.Ingestion, error)
	// ApplyBatch atomically accumulates one batch's results onto an open
	// record: counters are added, node ids and the log entry appended, and
	// the status updated.
	ApplyBatch(ctx context.Context, id string, delta domain.ProcessedCounts, nodeIDs []string, entry domain.LogEntry, status domain.IngestionStatus) error
	UpdateIngestion(ctx context.Context, ing *domain.Ingestion) error
	// FindIngestionsByDomain returns runs most recent first, up to limit.
	FindIngestionsByDomain(ctx context.Context, domainID string, limit int) ([]*domain.Ingestion, error)
}

// ModelVersionRepository persists model version snapshots.
type ModelVersionRepository interface {
	// CreateModelVersion stores a new version. Returns a Conflict error when
	// the version string is already taken.
	CreateModelVersion(ctx context.Context, mv *domain.ModelVersion) error
	FindModelVersion(ctx context.Context, versionNumber string) (*domain.ModelVersion, error)
	FindModelVersions(ctx context.Context, query ModelVersionQuery) ([]*domain.ModelVersion, error)
	FindStableVersion(ctx context.Context) (*domain.ModelVersion, error)
	UpdateModelVersion(ctx context.Context, mv *domain.ModelVersion) error
	// PromoteStable atomically demotes the current stable version (if any) to
	// deprecated and marks versionNumber stable with the given release date.
	// The two writes happen in a single transaction so at most one stable
	// version exists even under concurrent promotions.
	PromoteStable(ctx context.Context, versionNumber string, releaseDate time.Time) error
}

// Repository combines all entity repositories. Implementations back the
// service layer with a single shared store.
type Repository interface {
	DomainRepository
	SubdomainRepository
	NodeRepository
	RelationshipRepository
	IngestionRepository
	ModelVersionRepository
}
