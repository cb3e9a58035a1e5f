// Package engine drives the model lifecycle: it prepares datasets, trains or
// loads a model, scores it and retries until the accuracy threshold is met.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/fraud-detection/internal/common"
	"github.com/Veraticus/fraud-detection/internal/metrics"
	"github.com/Veraticus/fraud-detection/internal/model"
	"github.com/google/uuid"
)

// Options configures one lifecycle run.
type Options struct {
	TrainingFile    string
	AnalysisFile    string
	ModelFile       string
	MinimumAccuracy float64
	LabelIndex      int
	PersistModel    bool
	RetrainModel    bool
}

// Outcome describes a finished run.
type Outcome struct {
	Handle      model.Handle
	Run         model.Run
	Transitions []model.State
	Summary     model.ConfusionSummary
}

// Controller runs the train-evaluate-retry loop.
type Controller struct {
	trainer  Trainer
	datasets DatasetProvider
	harness  *Harness
	recorder Recorder
	metrics  *metrics.Metrics
	policy   RetryPolicy
	observer func(model.State)
	now      func() time.Time
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithRecorder stores run history in r.
func WithRecorder(r Recorder) ControllerOption {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithMetrics records lifecycle metrics in m.
func WithMetrics(m *metrics.Metrics) ControllerOption {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithRetryPolicy bounds the number of iterations.
func WithRetryPolicy(p RetryPolicy) ControllerOption {
	return func(c *Controller) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithHarness replaces the default evaluation harness.
func WithHarness(h *Harness) ControllerOption {
	return func(c *Controller) {
		if h != nil {
			c.harness = h
		}
	}
}

// WithStateObserver registers a callback invoked on every state change.
func WithStateObserver(fn func(model.State)) ControllerOption {
	return func(c *Controller) {
		c.observer = fn
	}
}

// NewController creates a lifecycle controller. Without options it retries
// without bound and keeps no history.
func NewController(trainer Trainer, datasets DatasetProvider, opts ...ControllerOption) *Controller {
	c := &Controller{
		trainer:  trainer,
		datasets: datasets,
		harness:  NewHarness(trainer),
		policy:   Unbounded(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the lifecycle until a model reaches opts.MinimumAccuracy or a
// fatal error occurs. The returned Outcome is non-nil even on error.
func (c *Controller) Run(ctx context.Context, opts Options) (*Outcome, error) {
	out := &Outcome{
		Run: model.Run{
			ID:              uuid.NewString(),
			StartedAt:       c.now(),
			TrainingFile:    opts.TrainingFile,
			AnalysisFile:    opts.AnalysisFile,
			ModelFile:       opts.ModelFile,
			MinimumAccuracy: opts.MinimumAccuracy,
		},
	}

	c.transition(out, model.StateIdle)
	if c.recorder != nil {
		if err := c.recorder.StartRun(ctx, &out.Run); err != nil {
			common.LogError(err, "Failed to record run start", common.Fields{"run_id": out.Run.ID})
		}
	}

	c.transition(out, model.StatePreparing)
	training, err := c.datasets.Prepare(ctx, opts.TrainingFile)
	if err != nil {
		return c.fail(ctx, out, fmt.Errorf("failed to prepare training data: %w", err))
	}
	analysis, err := c.datasets.Prepare(ctx, opts.AnalysisFile)
	if err != nil {
		return c.fail(ctx, out, fmt.Errorf("failed to prepare analysis data: %w", err))
	}

	for iteration := 1; ; iteration++ {
		if !c.policy.Allow(iteration) {
			return c.fail(ctx, out, fmt.Errorf("%w: accuracy %.4f below %.4f after %d iterations",
				common.ErrIterationLimit, out.Run.FinalAccuracy, opts.MinimumAccuracy, iteration-1))
		}
		if err := ctx.Err(); err != nil {
			return c.fail(ctx, out, err)
		}

		start := c.now()
		handle, source, err := c.obtainModel(ctx, out, opts, training)
		if err != nil {
			return c.fail(ctx, out, err)
		}

		c.transition(out, model.StateEvaluating)
		summary, err := c.harness.Score(ctx, handle, analysis.Evaluation, opts.LabelIndex)
		if err != nil {
			return c.fail(ctx, out, fmt.Errorf("failed to evaluate model: %w", err))
		}

		accuracy := summary.Accuracy()
		accepted := accuracy >= opts.MinimumAccuracy
		out.Summary = summary
		out.Run.Iterations = iteration
		out.Run.FinalAccuracy = accuracy

		slog.Info("Evaluated model",
			"run_id", out.Run.ID,
			"iteration", iteration,
			"source", source,
			"accuracy", accuracy,
			"threshold", opts.MinimumAccuracy,
			"summary", summary.String())

		c.recordIteration(ctx, &model.Iteration{
			CreatedAt: c.now(),
			RunID:     out.Run.ID,
			Number:    iteration,
			Source:    source,
			Model:     handle.String(),
			Summary:   summary,
			Accuracy:  accuracy,
			Duration:  c.now().Sub(start),
			Accepted:  accepted,
		})

		if accepted {
			c.transition(out, model.StateAccepted)
			if opts.PersistModel {
				if err := c.trainer.Save(handle, opts.ModelFile); err != nil {
					return c.fail(ctx, out, fmt.Errorf("failed to save model: %w", err))
				}
				out.Run.Persisted = true
				slog.Info("Saved model", "path", opts.ModelFile)
			}
			out.Handle = handle
			c.finish(ctx, out, "accepted")
			return out, nil
		}

		c.transition(out, model.StateRetrying)
		slog.Warn("Model below accuracy threshold, retrying",
			"iteration", iteration,
			"accuracy", accuracy,
			"threshold", opts.MinimumAccuracy)
	}
}

// obtainModel trains a fresh model or loads the persisted one. The choice is
// the same on every iteration: a loaded model that misses the threshold is
// loaded again, not retrained.
func (c *Controller) obtainModel(ctx context.Context, out *Outcome, opts Options, training *model.PartitionedDataset) (model.Handle, model.ModelSource, error) {
	if opts.RetrainModel || !opts.PersistModel || !fileExists(opts.ModelFile) {
		c.transition(out, model.StateTraining)
		handle, err := c.trainer.Fit(ctx, training.Training)
		if err != nil {
			return nil, model.SourceTrained, fmt.Errorf("%w: %w", common.ErrTrainerFailure, err)
		}
		slog.Info("Trained model", "model", handle.String(), "records", len(training.Training))
		return handle, model.SourceTrained, nil
	}

	c.transition(out, model.StateLoading)
	handle, err := c.trainer.Load(opts.ModelFile)
	if err != nil {
		return nil, model.SourceLoaded, fmt.Errorf("%w: %w", common.ErrPersistedModel, err)
	}
	slog.Info("Loaded model", "model", handle.String(), "path", opts.ModelFile)
	return handle, model.SourceLoaded, nil
}

func (c *Controller) transition(out *Outcome, state model.State) {
	out.Run.State = state
	out.Transitions = append(out.Transitions, state)

	slog.Debug("Lifecycle transition", "run_id", out.Run.ID, "state", state)
	c.metrics.ObserveTransition(string(state))
	if c.observer != nil {
		c.observer(state)
	}
}

func (c *Controller) recordIteration(ctx context.Context, iteration *model.Iteration) {
	c.metrics.ObserveIteration(strings.ToLower(string(iteration.Source)), iteration.Accuracy, iteration.Duration)
	c.metrics.ObserveConfusion(
		iteration.Summary.TotalRows,
		iteration.Summary.TotalLabeledFraud,
		iteration.Summary.CorrectlyIdentifiedFraud,
		iteration.Summary.FalsePositive,
		iteration.Summary.FalseNegative,
	)
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordIteration(ctx, iteration); err != nil {
		common.LogError(err, "Failed to record iteration", common.Fields{
			"run_id":    iteration.RunID,
			"iteration": iteration.Number,
		})
	}
}

func (c *Controller) fail(ctx context.Context, out *Outcome, err error) (*Outcome, error) {
	c.transition(out, model.StateFailed)
	out.Run.Error = err.Error()
	common.LogError(err, "Lifecycle run failed", common.Fields{"run_id": out.Run.ID})
	c.finish(ctx, out, "failed")
	return out, err
}

func (c *Controller) finish(ctx context.Context, out *Outcome, outcome string) {
	out.Run.FinishedAt = c.now()
	c.metrics.IncrementRun(outcome)
	if c.recorder == nil {
		return
	}
	// History is written even when the run was canceled.
	if err := c.recorder.FinishRun(context.WithoutCancel(ctx), &out.Run); err != nil {
		common.LogError(err, "Failed to record run finish", common.Fields{"run_id": out.Run.ID})
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
