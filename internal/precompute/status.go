// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package precompute

import (
	"time"
)

// State is the lifecycle state of one run kind.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Mode describes how a run treats subjects with a live list.
type Mode string

const (
	ModeFull        Mode = "full"
	ModeIncremental Mode = "incremental"
)

func modeOf(force bool) Mode {
	if force {
		return ModeFull
	}
	return ModeIncremental
}

// jobActivity keys the activity warm run in the status table.
const jobActivity = "activity"

// Result summarizes a finished run.
type Result struct {
	Kind      string        `json:"kind"`
	Mode      Mode          `json:"mode"`
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration_ns"`
}

// Status is the observable state of one run kind.
type Status struct {
	Kind       string    `json:"kind"`
	State      State     `json:"state"`
	Mode       Mode      `json:"mode,omitempty"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	// Last holds the summary of the most recent finished run.
	Last      *Result `json:"last,omitempty"`
	LastError string  `json:"last_error,omitempty"`
}
