package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusStopped   = "stopped"
	RunStatusFailed    = "failed"
)

// Run is one stacking run's ledger row.
type Run struct {
	ID            int64      `db:"id"`
	Direction     string     `db:"direction"`
	StepSize      string     `db:"step_size"`
	StepsPerFrame int        `db:"steps_per_frame"`
	FramesPlanned int        `db:"frames_planned"`
	Status        string     `db:"status"`
	ErrorMessage  *string    `db:"error_message"`
	StartedAt     time.Time  `db:"started_at"`
	CompletedAt   *time.Time `db:"completed_at"`
}

// Frame is one captured frame's ledger row.
type Frame struct {
	ID         int64     `db:"id"`
	RunID      int64     `db:"run_id"`
	FrameIndex int       `db:"frame_index"`
	CapturedAt time.Time `db:"captured_at"`
}

// CreateRun inserts a new run in the running state and returns its ID.
func (db *DB) CreateRun(direction, stepSize string, stepsPerFrame, framesPlanned int) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO runs (direction, step_size, steps_per_frame, frames_planned, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, direction, stepSize, stepsPerFrame, framesPlanned, RunStatusRunning, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}
	return res.LastInsertId()
}

// RecordFrame inserts one captured frame for a run.
func (db *DB) RecordFrame(runID int64, frameIndex int) error {
	_, err := db.conn.Exec(`
		INSERT INTO frames (run_id, frame_index, captured_at)
		VALUES (?, ?, ?)
	`, runID, frameIndex, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record frame %d: %w", frameIndex, err)
	}
	return nil
}

// CompleteRun finalizes a run with its terminal status. errMessage is
// stored for failed runs only.
func (db *DB) CompleteRun(runID int64, status string, errMessage string) error {
	var msg *string
	if errMessage != "" {
		msg = &errMessage
	}
	_, err := db.conn.Exec(`
		UPDATE runs SET status = ?, error_message = ?, completed_at = ?
		WHERE id = ?
	`, status, msg, time.Now(), runID)
	if err != nil {
		return fmt.Errorf("failed to complete run %d: %w", runID, err)
	}
	return nil
}

// RecordRender inserts one finished render for a run. runID may be zero
// when the render ran outside any recorded run.
func (db *DB) RecordRender(runID int64, outputPath string, durationSeconds float64) error {
	var run *int64
	if runID != 0 {
		run = &runID
	}
	_, err := db.conn.Exec(`
		INSERT INTO renders (run_id, output_path, duration_seconds, rendered_at)
		VALUES (?, ?, ?, ?)
	`, run, outputPath, durationSeconds, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record render: %w", err)
	}
	return nil
}

// GetRun fetches one run by ID.
func (db *DB) GetRun(runID int64) (*Run, error) {
	run := &Run{}
	err := db.conn.QueryRow(`
		SELECT id, direction, step_size, steps_per_frame, frames_planned,
		       status, error_message, started_at, completed_at
		FROM runs WHERE id = ?
	`, runID).Scan(
		&run.ID, &run.Direction, &run.StepSize, &run.StepsPerFrame,
		&run.FramesPlanned, &run.Status, &run.ErrorMessage,
		&run.StartedAt, &run.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", runID, err)
	}
	return run, nil
}

// CountFrames returns the number of frames recorded for a run.
func (db *DB) CountFrames(runID int64) (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM frames WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count frames: %w", err)
	}
	return n, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(`
		SELECT id, direction, step_size, steps_per_frame, frames_planned,
		       status, error_message, started_at, completed_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.Direction, &run.StepSize, &run.StepsPerFrame,
			&run.FramesPlanned, &run.Status, &run.ErrorMessage,
			&run.StartedAt, &run.CompletedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
