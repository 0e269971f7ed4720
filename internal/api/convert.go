package api

import (
	"slices"

	"ainotes/internal/jobs"
	"ainotes/internal/preflight"
	"ainotes/internal/workflow"
)

// FromJob converts a stored job to its API representation.
func FromJob(job *jobs.Job) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		ID:             job.ID,
		UserID:         job.UserID,
		Title:          job.Title,
		Quality:        job.Quality.String(),
		Status:         string(job.Status),
		Content:        job.Content,
		ErrorMessage:   job.ErrorMessage,
		SourceFileName: job.SourceFileName,
		SourceFileSize: job.SourceFileSize,
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromJobs converts jobs into API DTOs. The result is never nil.
func FromJobs(list []*jobs.Job) []Job {
	out := make([]Job, 0, len(list))
	for _, job := range list {
		out = append(out, FromJob(job))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:   summary.Running,
		Workers:   summary.Workers,
		InFlight:  summary.InFlight,
		JobStats:  MergeJobStats(summary.JobStats),
		LastError: summary.LastError,
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob)
		last.Content = nil
		wf.LastJob = &last
	}
	return wf
}

// MergeJobStats produces a string-keyed representation of job stats with
// every status present.
func MergeJobStats(stats map[jobs.Status]int) map[string]int {
	out := make(map[string]int, len(jobs.AllStatuses()))
	for _, status := range jobs.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// FromDependencies converts dependency probes, sorted by name.
func FromDependencies(deps []preflight.Dependency) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(deps))
	for _, dep := range deps {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	slices.SortFunc(out, func(a, b DependencyStatus) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return out
}
