package models

import (
	"time"

	"github.com/google/uuid"
)

// JobResult summarises a single job of a run
type JobResult struct {
	Name         string `json:"name" yaml:"name"`
	Failed       bool   `json:"failed" yaml:"failed"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty"`
	HostsChecked int    `json:"hosts_checked" yaml:"hosts_checked"`
	Broken       int    `json:"broken" yaml:"broken"`
	Excluded     int    `json:"excluded" yaml:"excluded"`
	Disabled     int    `json:"disabled" yaml:"disabled"`
}

// RunSummary contains everything a run discovered
type RunSummary struct {
	ID          string      `json:"id" yaml:"id"`
	StartedAt   time.Time   `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Status      RunStatus   `json:"status" yaml:"status"`
	Jobs        []JobResult `json:"jobs" yaml:"jobs"`
	Findings    []Finding   `json:"findings" yaml:"findings"`
}

// NewRunSummary creates a new run summary with initialized metadata
func NewRunSummary() *RunSummary {
	return &RunSummary{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		Status:    StatusRunning,
		Jobs:      []JobResult{},
		Findings:  []Finding{},
	}
}

// Failed reports whether any job failed
func (s *RunSummary) Failed() bool {
	for _, j := range s.Jobs {
		if j.Failed {
			return true
		}
	}
	return s.Status == StatusFailed
}

// Finish stamps the completion time and resolves the final status
func (s *RunSummary) Finish() {
	now := time.Now()
	s.CompletedAt = &now
	if s.Failed() {
		s.Status = StatusFailed
	} else {
		s.Status = StatusOK
	}
}

// MarkFailed forces the run to failure regardless of job results
func (s *RunSummary) MarkFailed() {
	s.Status = StatusFailed
}
