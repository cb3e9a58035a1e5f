package model

import (
	"fmt"
	"time"
)

// Handle is an opaque reference to a fitted regression model.
type Handle interface {
	fmt.Stringer
}

// State is a step of the model lifecycle.
type State string

// Lifecycle states.
const (
	StateIdle       State = "IDLE"
	StatePreparing  State = "PREPARING"
	StateTraining   State = "TRAINING"
	StateLoading    State = "LOADING"
	StateEvaluating State = "EVALUATING"
	StateAccepted   State = "ACCEPTED"
	StateRetrying   State = "RETRYING"
	StateFailed     State = "FAILED"
)

// ModelSource records where an iteration's model came from.
type ModelSource string

// Model sources.
const (
	SourceTrained ModelSource = "TRAINED"
	SourceLoaded  ModelSource = "LOADED"
)

// Run is one invocation of the lifecycle controller.
type Run struct {
	StartedAt       time.Time
	FinishedAt      time.Time
	ID              string
	TrainingFile    string
	AnalysisFile    string
	ModelFile       string
	State           State
	Error           string
	MinimumAccuracy float64
	FinalAccuracy   float64
	Iterations      int
	Persisted       bool
}

// Iteration is one train-or-load then evaluate pass within a run.
type Iteration struct {
	CreatedAt time.Time
	RunID     string
	Source    ModelSource
	Model     string
	Summary   ConfusionSummary
	Number    int
	Accuracy  float64
	Duration  time.Duration
	Accepted  bool
}
