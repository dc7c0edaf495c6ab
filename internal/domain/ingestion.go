package domain

import "time"

// IngestionType identifies how a batch of knowledge entered the system.
type IngestionType string

const (
	IngestManual       IngestionType = "manual"
	IngestBulkUpload   IngestionType = "bulk_upload"
	IngestAPI          IngestionType = "api"
	IngestWebScraping  IngestionType = "web_scraping"
	IngestDatabaseSync IngestionType = "database_sync"
	IngestImport       IngestionType = "import"
)

// ValidIngestionType reports whether t is a known ingestion type.
func ValidIngestionType(t IngestionType) bool {
	switch t {
	case IngestManual, IngestBulkUpload, IngestAPI, IngestWebScraping,
		IngestDatabaseSync, IngestImport:
		return true
	}
	return false
}

// IngestionStatus is the lifecycle state of an ingestion run.
type IngestionStatus string

const (
	IngestionPending         IngestionStatus = "pending"
	IngestionInProgress      IngestionStatus = "in_progress"
	IngestionCompleted       IngestionStatus = "completed"
	IngestionFailed          IngestionStatus = "failed"
	IngestionPartiallyFailed IngestionStatus = "partially_failed"
)

// IngestionSource describes where a batch came from.
type IngestionSource struct {
	Name         string `json:"name,omitempty"`
	URL          string `json:"url,omitempty"`
	Format       string `json:"format,omitempty"`
	TotalRecords int    `json:"totalRecords,omitempty"`
}

// ProcessedCounts accounts for every candidate in a run. At completion
// Total == Successful + Failed + Skipped.
type ProcessedCounts struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// IngestionValidation tracks validation performed during ingestion.
type IngestionValidation struct {
	ValidationRun    bool     `json:"validationRun"`
	PassedValidation int      `json:"passedValidation"`
	FailedValidation int      `json:"failedValidation"`
	ValidationErrors []string `json:"validationErrors,omitempty"`
}

// Deduplication tracks duplicate detection during ingestion.
type Deduplication struct {
	Ran                bool `json:"ran"`
	DuplicatesFound    int  `json:"duplicatesFound"`
	DuplicatesRemoved  int  `json:"duplicatesRemoved"`
	DuplicateThreshold int  `json:"duplicateThreshold,omitempty"`
}

// ModelImpact flags whether an ingested volume should trigger retraining.
type ModelImpact struct {
	RequiresRetraining  bool       `json:"requiresRetraining"`
	RetrainingScheduled *time.Time `json:"retrainingScheduled,omitempty"`
	EstimatedImpact     string     `json:"estimatedImpact,omitempty"`
}

// LogEntry is one timestamped line in an ingestion run's structured log.
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// MetricsSnapshot captures domain counters at a point in time.
type MetricsSnapshot struct {
	TotalNodes   int `json:"totalNodes"`
	QualityScore int `json:"qualityScore"`
}

// IngestionMetrics holds before/after domain snapshots and their deltas.
type IngestionMetrics struct {
	BeforeIngestion   MetricsSnapshot `json:"beforeIngestion"`
	AfterIngestion    MetricsSnapshot `json:"afterIngestion"`
	DeltaNodes        int             `json:"deltaNodes"`
	DeltaQualityScore int             `json:"deltaQualityScore"`
}

// IngestionDuration tracks run timing.
type IngestionDuration struct {
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	DurationSeconds int        `json:"durationSeconds,omitempty"`
}

// IngestionSummary is a free-text description of the run.
type IngestionSummary struct {
	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Ingestion is the bookkeeping record for one batch-intake run. Batches may
// be submitted repeatedly against an open record; counters accumulate.
type Ingestion struct {
	ID             string              `json:"id"`
	NodeIDs        []string            `json:"nodeIds"`
	DomainID       string              `json:"domainId"`
	SubdomainID    string              `json:"subdomainId,omitempty"`
	Type           IngestionType       `json:"ingestionType"`
	Source         IngestionSource     `json:"source"`
	NodesProcessed ProcessedCounts     `json:"nodesProcessed"`
	Validation     IngestionValidation `json:"validation"`
	Deduplication  Deduplication       `json:"deduplication"`
	ModelImpact    ModelImpact         `json:"modelImpact"`
	Status         IngestionStatus     `json:"status"`
	ExecutedBy     string              `json:"executedBy"`
	Duration       IngestionDuration   `json:"duration"`
	Logs           []LogEntry          `json:"logs"`
	Summary        IngestionSummary    `json:"summary"`
	Metrics        IngestionMetrics    `json:"metrics"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}
