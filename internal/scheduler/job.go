package scheduler

import (
	"context"
	"time"
)

// Job is a scheduled unit of work.
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron schedule expression (with seconds),
	// e.g. "0 30 17 * * 1-5"
	Schedule() string
}

// JobResult records one job execution.
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory stores recent executions of one job.
type JobHistory struct {
	Results []JobResult
}

// historyLimit bounds per-job history retention.
const historyLimit = 100

// AddResult appends a result, dropping the oldest beyond the limit.
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}
}

// SuccessRate returns the fraction of successful runs.
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}
	success := 0
	for _, r := range h.Results {
		if r.Success {
			success++
		}
	}
	return float64(success) / float64(len(h.Results))
}
