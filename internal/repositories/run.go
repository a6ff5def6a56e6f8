package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/plexsync/internal/models"
)

// RunRepository persists sync runs and their per-resource-type counters.
type RunRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.SyncRun] = (*RunRepository)(nil)

// NewRunRepository creates a RunRepository backed by the given database.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run record and its per-resource counters.
func (r *RunRepository) Create(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid sync run: %w", err)
	}

	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return err
	}
	run.Sequence = sequence

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, sequence, source, target, resources, error, started_at, finished_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Sequence, run.Source, run.Target, joinResources(run.Resources),
		run.ErrorText, run.StartedAt, nullableTime(run.FinishedAt), run.Created, run.Updated,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := insertResults(tx, run); err != nil {
		return err
	}

	return tx.Commit()
}

// Get retrieves a run by its ID, including per-resource counters.
func (r *RunRepository) Get(id string) (*models.SyncRun, error) {
	row := r.db.QueryRow(
		`SELECT id, sequence, source, target, resources, error, started_at, finished_at, created_at, updated_at
		 FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s not found", id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if err := r.loadResults(run); err != nil {
		return nil, err
	}

	return run, nil
}

// Update rewrites a run's mutable fields (finish time, error, counters).
func (r *RunRepository) Update(run *models.SyncRun) error {
	run.Updated = time.Now().UTC()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE runs SET error = ?, finished_at = ?, updated_at = ? WHERE id = ?`,
		run.ErrorText, nullableTime(run.FinishedAt), run.Updated, run.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", run.RunID)
	}

	if _, err := tx.Exec(`DELETE FROM run_results WHERE run_id = ?`, run.RunID); err != nil {
		return fmt.Errorf("failed to clear run results: %w", err)
	}
	if err := insertResults(tx, run); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a run and its counters.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", id)
	}

	_, err = r.db.Exec(`DELETE FROM run_results WHERE run_id = ?`, id)
	return err
}

// List retrieves runs newest-first. Supported criteria: "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `SELECT id, sequence, source, target, resources, error, started_at, finished_at, created_at, updated_at
	          FROM runs ORDER BY started_at DESC`
	var args []any

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	for _, run := range runs {
		if err := r.loadResults(run); err != nil {
			return nil, err
		}
	}

	return runs, nil
}

func (r *RunRepository) loadResults(run *models.SyncRun) error {
	rows, err := r.db.Query(`SELECT resource, touched, skipped FROM run_results WHERE run_id = ?`, run.RunID)
	if err != nil {
		return fmt.Errorf("failed to load run results: %w", err)
	}
	defer rows.Close()

	run.Touched = make(map[models.ResourceType]int)
	run.Skipped = make(map[models.ResourceType]int)

	for rows.Next() {
		var resource string
		var touched, skipped int
		if err := rows.Scan(&resource, &touched, &skipped); err != nil {
			return fmt.Errorf("failed to scan run result: %w", err)
		}
		run.Touched[models.ResourceType(resource)] = touched
		run.Skipped[models.ResourceType(resource)] = skipped
	}

	return rows.Err()
}

func insertResults(tx *sql.Tx, run *models.SyncRun) error {
	for _, resource := range run.Resources {
		_, err := tx.Exec(
			`INSERT INTO run_results (run_id, resource, touched, skipped) VALUES (?, ?, ?, ?)`,
			run.RunID, string(resource), run.Touched[resource], run.Skipped[resource],
		)
		if err != nil {
			return fmt.Errorf("failed to insert run result: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.SyncRun, error) {
	run := &models.SyncRun{}
	var resources string
	var finished sql.NullTime

	err := row.Scan(
		&run.RunID, &run.Sequence, &run.Source, &run.Target, &resources,
		&run.ErrorText, &run.StartedAt, &finished, &run.Created, &run.Updated,
	)
	if err != nil {
		return nil, err
	}

	for _, part := range strings.Split(resources, ",") {
		if part != "" {
			run.Resources = append(run.Resources, models.ResourceType(part))
		}
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}

	return run, nil
}

func joinResources(resources []models.ResourceType) string {
	parts := make([]string, len(resources))
	for i, resource := range resources {
		parts[i] = string(resource)
	}
	return strings.Join(parts, ",")
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
