package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/fraud-detection/internal/model"
)

// ErrRunNotFound is returned when a run ID is not in the history.
var ErrRunNotFound = errors.New("run not found")

// StartRun inserts a new run.
func (s *SQLiteStorage) StartRun(ctx context.Context, run *model.Run) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, started_at, training_file, analysis_file, model_file,
			minimum_accuracy, state
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt, run.TrainingFile, run.AnalysisFile, run.ModelFile,
		run.MinimumAccuracy, string(run.State))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// RecordIteration stores one iteration of a run.
func (s *SQLiteStorage) RecordIteration(ctx context.Context, iteration *model.Iteration) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateIteration(iteration); err != nil {
		return err
	}

	summary := iteration.Summary
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO iterations (
			run_id, number, source, model, accuracy, accepted, duration_ms, created_at,
			total_rows, total_labeled_fraud, correctly_identified_fraud, false_positive, false_negative
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, iteration.RunID, iteration.Number, string(iteration.Source), iteration.Model,
		iteration.Accuracy, iteration.Accepted, iteration.Duration.Milliseconds(), iteration.CreatedAt,
		summary.TotalRows, summary.TotalLabeledFraud, summary.CorrectlyIdentifiedFraud,
		summary.FalsePositive, summary.FalseNegative)
	if err != nil {
		return fmt.Errorf("failed to insert iteration %d of run %s: %w", iteration.Number, iteration.RunID, err)
	}
	return nil
}

// FinishRun stores the final state of a run.
func (s *SQLiteStorage) FinishRun(ctx context.Context, run *model.Run) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	var finishedAt any
	if !run.FinishedAt.IsZero() {
		finishedAt = run.FinishedAt
	}
	var runErr any
	if run.Error != "" {
		runErr = run.Error
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, state = ?, final_accuracy = ?, iterations = ?, persisted = ?, error = ?
		WHERE id = ?
	`, finishedAt, string(run.State), run.FinalAccuracy, run.Iterations, run.Persisted, runErr, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	return nil
}

const runColumns = `
	id, started_at, finished_at, training_file, analysis_file, model_file,
	minimum_accuracy, state, final_accuracy, iterations, persisted, error`

// GetRun retrieves a run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns all.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// ListIterations returns the iterations of a run in order.
func (s *SQLiteStorage) ListIterations(ctx context.Context, runID string) ([]model.Iteration, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, number, source, model, accuracy, accepted, duration_ms, created_at,
			total_rows, total_labeled_fraud, correctly_identified_fraud, false_positive, false_negative
		FROM iterations
		WHERE run_id = ?
		ORDER BY number
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query iterations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var iterations []model.Iteration
	for rows.Next() {
		var it model.Iteration
		var source string
		var durationMS int64
		if err := rows.Scan(
			&it.RunID,
			&it.Number,
			&source,
			&it.Model,
			&it.Accuracy,
			&it.Accepted,
			&durationMS,
			&it.CreatedAt,
			&it.Summary.TotalRows,
			&it.Summary.TotalLabeledFraud,
			&it.Summary.CorrectlyIdentifiedFraud,
			&it.Summary.FalsePositive,
			&it.Summary.FalseNegative,
		); err != nil {
			return nil, fmt.Errorf("failed to scan iteration: %w", err)
		}
		it.Source = model.ModelSource(source)
		it.Duration = msToDuration(durationMS)
		iterations = append(iterations, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating iterations: %w", err)
	}
	return iterations, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.Run, error) {
	var run model.Run
	var state string
	var finishedAt sql.NullTime
	var runErr sql.NullString

	err := row.Scan(
		&run.ID,
		&run.StartedAt,
		&finishedAt,
		&run.TrainingFile,
		&run.AnalysisFile,
		&run.ModelFile,
		&run.MinimumAccuracy,
		&state,
		&run.FinalAccuracy,
		&run.Iterations,
		&run.Persisted,
		&runErr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.State = model.State(state)
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	run.Error = runErr.String
	return &run, nil
}

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
