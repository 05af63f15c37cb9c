package model

import "time"

// Run status constants.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// validTransitions maps each status to the set of statuses it may transition to.
var validTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusRunning:   true,
		StatusFailed:    true,
		StatusCancelled: true,
	},
	StatusRunning: {
		StatusCompleted: true,
		StatusFailed:    true,
		StatusCancelled: true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Terminal reports whether status is final.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed || status == StatusCancelled
}

// Run is one solve of a problem by a workflow.
type Run struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	Workflow        string `json:"workflow"`
	Vartype         string `json:"vartype"`
	NumVariables    int    `json:"num_variables"`
	NumInteractions int    `json:"num_interactions"`

	// Problem and WorkflowSpec are the JSON documents the run was submitted
	// with. They are persisted but not returned by the API.
	Problem      []byte `json:"-"`
	WorkflowSpec []byte `json:"-"`

	Sample        map[int]int `json:"sample,omitempty"`
	InitialEnergy *float64    `json:"initial_energy,omitempty"`
	Energy        *float64    `json:"energy,omitempty"`
	Iterations    int         `json:"iterations"`
	Error         string      `json:"error,omitempty"`
	TimeoutS      *int        `json:"timeout_s,omitempty"`
	DurationMS    *int        `json:"duration_ms,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	StartedAt     *time.Time  `json:"started_at,omitempty"`
	FinishedAt    *time.Time  `json:"finished_at,omitempty"`
}

// Iteration is one persisted loop iteration of a run.
type Iteration struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Seq        int       `json:"seq"`
	Energy     float64   `json:"energy"`
	BestEnergy float64   `json:"best_energy"`
	Improved   bool      `json:"improved"`
	DurationMS int       `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
