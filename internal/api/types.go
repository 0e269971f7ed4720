package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Error codes returned in ErrorResponse.Error.
const (
	CodeInvalidSession  = "INVALID_SESSION"
	CodeMissingFile     = "MISSING_FILE"
	CodeInvalidFileType = "INVALID_FILE_TYPE"
	CodeInvalidQuality  = "INVALID_QUALITY"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInternal        = "INTERNAL"
)

// Job describes a notes job in a transport-friendly format.
type Job struct {
	ID             string  `json:"id"`
	UserID         string  `json:"userId"`
	Title          string  `json:"title"`
	Quality        string  `json:"quality"`
	Status         string  `json:"status"`
	Content        *string `json:"content"`
	ErrorMessage   *string `json:"errorMessage"`
	SourceFileName string  `json:"sourceFileName"`
	SourceFileSize int64   `json:"sourceFileSize"`
	CreatedAt      string  `json:"createdAt,omitempty"`
	UpdatedAt      string  `json:"updatedAt,omitempty"`
}

// CreateJobResponse is returned when a job is accepted.
type CreateJobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Items []Job `json:"items"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Item Job `json:"item"`
}

// ErrorResponse carries a machine-readable code and optional detail.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running   bool           `json:"running"`
	Workers   int            `json:"workers"`
	InFlight  int            `json:"inFlight"`
	JobStats  map[string]int `json:"jobStats"`
	LastError string         `json:"lastError,omitempty"`
	LastJob   *Job           `json:"lastJob,omitempty"`
}

// CheckResult mirrors a preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StoreDriver  string             `json:"storeDriver"`
	StoreHealthy bool               `json:"storeHealthy"`
	StoreError   string             `json:"storeError,omitempty"`
	LockFilePath string             `json:"lockFilePath"`
	InboxDir     string             `json:"inboxDir,omitempty"`
	Model        string             `json:"model"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Checks       []CheckResult      `json:"checks"`
	Dependencies []DependencyStatus `json:"dependencies"`
}
