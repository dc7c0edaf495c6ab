package domain

import "time"

// ModelStatus is the lifecycle state of a model version. At most one version
// holds stable at any time.
type ModelStatus string

const (
	ModelDevelopment ModelStatus = "development"
	ModelBeta        ModelStatus = "beta"
	ModelStable      ModelStatus = "stable"
	ModelDeprecated  ModelStatus = "deprecated"
	ModelRetired     ModelStatus = "retired"
)

// ValidModelStatus reports whether s is a known model status.
func ValidModelStatus(s ModelStatus) bool {
	switch s {
	case ModelDevelopment, ModelBeta, ModelStable, ModelDeprecated, ModelRetired:
		return true
	}
	return false
}

// TrainingStats describes the training run behind a version.
type TrainingStats struct {
	TrainingStartDate     *time.Time `json:"trainingStartDate,omitempty"`
	TrainingEndDate       *time.Time `json:"trainingEndDate,omitempty"`
	TotalNodesUsed        int        `json:"totalNodesUsed,omitempty"`
	ValidatedNodesUsed    int        `json:"validatedNodesUsed,omitempty"`
	TrainingDurationHours float64    `json:"trainingDurationHours,omitempty"`
	DatasetSize           string     `json:"datasetSize,omitempty"`
}

// Performance holds measured model quality, 0-100 scales.
type Performance struct {
	Accuracy  float64 `json:"accuracy,omitempty"`
	Precision float64 `json:"precision,omitempty"`
	Recall    float64 `json:"recall,omitempty"`
	F1Score   float64 `json:"f1Score,omitempty"`
}

// Parameters declares the model family and shape.
type Parameters struct {
	ModelType     string  `json:"modelType,omitempty"`
	ModelSize     string  `json:"modelSize,omitempty"`
	Quantization  string  `json:"quantization,omitempty"`
	ContextLength int     `json:"contextLength,omitempty"`
	BatchSize     int     `json:"batchSize,omitempty"`
	LearningRate  float64 `json:"learningRate,omitempty"`
}

// Inference holds serving characteristics.
type Inference struct {
	AverageLatencyMs    float64 `json:"averageLatencyMs,omitempty"`
	TokensPerSecond     float64 `json:"tokensPerSecond,omitempty"`
	MemoryRequiredGb    float64 `json:"memoryRequiredGb,omitempty"`
	GPURequired         bool    `json:"gpuRequired,omitempty"`
	RecommendedHardware string  `json:"recommendedHardware,omitempty"`
}

// Changelog lists what changed since the previous version.
type Changelog struct {
	MajorChanges []string `json:"majorChanges,omitempty"`
	BugFixes     []string `json:"bugFixes,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
}

// Compatibility describes upgrade/rollback expectations.
type Compatibility struct {
	PreviousVersion     string   `json:"previousVersion,omitempty"`
	BreakingChanges     bool     `json:"breakingChanges"`
	BreakingChangesList []string `json:"breakingChangesList,omitempty"`
	RollbackSupported   bool     `json:"rollbackSupported"`
}

// Distribution describes how the version is shipped.
type Distribution struct {
	PubliclyAvailable bool   `json:"publiclyAvailable"`
	APIEndpoint       string `json:"apiEndpoint,omitempty"`
	DownloadURL       string `json:"downloadUrl,omitempty"`
	ChecksumSHA256    string `json:"checksumSha256,omitempty"`
}

// Monitoring holds post-release health signals.
type Monitoring struct {
	DriftScore              float64    `json:"driftScore,omitempty"`
	LastMonitoredDate       *time.Time `json:"lastMonitoredDate,omitempty"`
	IncidentsReported       int        `json:"incidentsReported,omitempty"`
	AverageUserSatisfaction float64    `json:"averageUserSatisfaction,omitempty"`
}

// ModelVersionMetadata carries free-form version bookkeeping.
type ModelVersionMetadata struct {
	Notes                string   `json:"notes,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
	RelatedDocumentation []string `json:"relatedDocumentation,omitempty"`
}

// ModelVersion is one versioned snapshot of the model, referencing the
// domains whose curated knowledge fed it. VersionNumber is the unique
// natural key.
type ModelVersion struct {
	VersionNumber string               `json:"versionNumber"`
	Name          string               `json:"name,omitempty"`
	Description   string               `json:"description,omitempty"`
	DomainIDs     []string             `json:"domains"`
	TrainingStats TrainingStats        `json:"trainingStats"`
	Performance   Performance          `json:"performance"`
	Parameters    Parameters           `json:"parameters"`
	Inference     Inference            `json:"inference"`
	Changelog     Changelog            `json:"changelog"`
	Compatibility Compatibility        `json:"compatibility"`
	Status        ModelStatus          `json:"status"`
	ReleaseDate   *time.Time           `json:"releaseDate,omitempty"`
	SunsetDate    *time.Time           `json:"sunsetDate,omitempty"`
	Distribution  Distribution         `json:"distribution"`
	TrainedBy     string               `json:"trainedBy"`
	Monitoring    Monitoring           `json:"monitoring"`
	Metadata      ModelVersionMetadata `json:"metadata"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}
