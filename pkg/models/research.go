package models

import (
	"fmt"
	"time"
)

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

func ParseJobStatus(s string) (JobStatus, error) {
	switch JobStatus(s) {
	case JobPending, JobProcessing, JobCompleted, JobFailed:
		return JobStatus(s), nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Rank orders statuses along the lifecycle. Both terminal states share the
// highest rank.
func (s JobStatus) Rank() int {
	switch s {
	case JobPending:
		return 0
	case JobProcessing:
		return 1
	case JobCompleted, JobFailed:
		return 2
	}
	return -1
}

type Citation struct {
	ID             string  `json:"id"`
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	Snippet        string  `json:"snippet"`
	RelevanceScore float64 `json:"relevanceScore"`
}

type ResearchJob struct {
	ID           string     `json:"id"`
	Status       JobStatus  `json:"status"`
	Query        string     `json:"query"`
	ComputeUnits int        `json:"computeUnits"`
	MarketID     string     `json:"marketId,omitempty"`
	Result       string     `json:"result,omitempty"`
	Citations    []Citation `json:"citations,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	Error        string     `json:"error,omitempty"`

	// ProviderRef is the provider's id once submission succeeded.
	ProviderRef string `json:"-"`
	// Simulated jobs follow the elapsed-time timeline instead of the provider.
	Simulated bool `json:"-"`
}

func (j *ResearchJob) Clone() *ResearchJob {
	c := *j
	if j.Citations != nil {
		c.Citations = append([]Citation(nil), j.Citations...)
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// ResearchUpdate is one observation of a job's progress, either reported by
// the provider or derived from the simulated timeline.
type ResearchUpdate struct {
	Status    JobStatus
	Result    string
	Citations []Citation
	Error     string
}
