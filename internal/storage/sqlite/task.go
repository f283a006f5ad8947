package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hte-labs/hte-planner/internal/model"
	"github.com/hte-labs/hte-planner/internal/storage"
)

// CreateTask appends a new task to a goal, its goal must exist.
func (r *Repository) CreateTask(ctx context.Context, t model.StoredTask) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // Rollback is safe to call after Commit

	var maxSeq int
	query := `SELECT COALESCE(MAX(sequence), 0) FROM tasks WHERE goal_id = ?`
	if err := tx.QueryRowContext(ctx, query, t.GoalID).Scan(&maxSeq); err != nil {
		return fmt.Errorf("could not get max sequence: %w", err)
	}

	if err := insertTask(ctx, tx, t, maxSeq+1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Created task %s of goal %s", t.ID, t.GoalID)
	return nil
}

// GetTask retrieves a goal task.
func (r *Repository) GetTask(ctx context.Context, goalID, taskID string) (*model.StoredTask, error) {
	query := `
		SELECT goal_id, id, start_at, end_at, title, action_plan, expected_outcome, complete
		FROM tasks
		WHERE goal_id = ? AND id = ?
	`

	t, err := scanTask(r.db.QueryRowContext(ctx, query, goalID, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s of goal %s: %w", taskID, goalID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query task: %w", err)
	}

	return &t, nil
}

// ListTasksByGoal returns the goal tasks sorted by start date, ties keep the
// insertion order.
func (r *Repository) ListTasksByGoal(ctx context.Context, goalID string) ([]model.StoredTask, error) {
	return listTasks(ctx, r.db, goalID)
}

// UpdateTask updates an existing task.
func (r *Repository) UpdateTask(ctx context.Context, t model.StoredTask) error {
	query := `
		UPDATE tasks
		SET
			start_at = ?,
			end_at = ?,
			title = ?,
			action_plan = ?,
			expected_outcome = ?,
			complete = ?
		WHERE goal_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, query, t.StartAt, t.EndAt, t.Title, t.ActionPlan, t.ExpectedOutcome, t.Complete, t.GoalID, t.ID)
	if err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}

	return checkAffected(result, fmt.Sprintf("task %s of goal %s", t.ID, t.GoalID))
}

// DeleteTask deletes a goal task.
func (r *Repository) DeleteTask(ctx context.Context, goalID, taskID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE goal_id = ? AND id = ?`, goalID, taskID)
	if err != nil {
		return fmt.Errorf("could not delete task: %w", err)
	}

	return checkAffected(result, fmt.Sprintf("task %s of goal %s", taskID, goalID))
}

// SavePlan stores a generated plan in a single transaction.
func (r *Repository) SavePlan(ctx context.Context, p model.Plan) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // Rollback is safe to call after Commit

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (id, name, created_at, updated_at) VALUES (?, '', ?, ?)`,
		p.UserID, now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("could not ensure user: %w", err)
	}

	g := storage.GoalFromPlan(p, now)
	var owner string
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM goals WHERE id = ?`, g.ID).Scan(&owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := r.insertGoal(ctx, tx, g); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("could not query goal: %w", err)
	case owner != g.UserID:
		return fmt.Errorf("goal %s belongs to another user: %w", g.ID, model.ErrNotValid)
	default:
		existing, err := scanGoal(tx.QueryRowContext(ctx, `
			SELECT id, user_id, title, description, requirements, status, created_at, updated_at
			FROM goals WHERE id = ?`, g.ID))
		if err != nil {
			return fmt.Errorf("could not query goal: %w", err)
		}
		g.Status = existing.Status
		if err := r.updateGoal(ctx, tx, g); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE goal_id = ?`, g.ID); err != nil {
		return fmt.Errorf("could not delete previous tasks: %w", err)
	}
	for i, t := range p.Tasks {
		if err := insertTask(ctx, tx, model.StoredTask{GoalID: g.ID, Task: t}, i+1); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Saved plan of goal %s with %d tasks", g.ID, len(p.Tasks))
	return nil
}

// GetPlan rebuilds the plan of a goal.
func (r *Repository) GetPlan(ctx context.Context, goalID string) (*model.Plan, error) {
	g, err := r.GetGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}

	tasks, err := listTasks(ctx, r.db, goalID)
	if err != nil {
		return nil, err
	}

	p := storage.PlanFromGoal(*g, tasks)
	return &p, nil
}

func insertTask(ctx context.Context, db execer, t model.StoredTask, sequence int) error {
	query := `
		INSERT INTO tasks (goal_id, id, sequence, start_at, end_at, title, action_plan, expected_outcome, complete)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query, t.GoalID, t.ID, sequence, t.StartAt, t.EndAt, t.Title, t.ActionPlan, t.ExpectedOutcome, t.Complete)
	if err != nil {
		switch {
		case isUniqueErr(err):
			return fmt.Errorf("task %s of goal %s: %w", t.ID, t.GoalID, model.ErrAlreadyExists)
		case isForeignKeyErr(err):
			return fmt.Errorf("goal %s: %w", t.GoalID, model.ErrNotFound)
		}
		return fmt.Errorf("could not insert task: %w", err)
	}

	return nil
}

func listTasks(ctx context.Context, db execer, goalID string) ([]model.StoredTask, error) {
	query := `
		SELECT goal_id, id, start_at, end_at, title, action_plan, expected_outcome, complete
		FROM tasks
		WHERE goal_id = ?
		ORDER BY start_at ASC, sequence ASC
	`

	rows, err := db.QueryContext(ctx, query, goalID)
	if err != nil {
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.StoredTask{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tasks, nil
}

func scanTask(s scanner) (model.StoredTask, error) {
	var t model.StoredTask
	err := s.Scan(&t.GoalID, &t.ID, &t.StartAt, &t.EndAt, &t.Title, &t.ActionPlan, &t.ExpectedOutcome, &t.Complete)
	if err != nil {
		return model.StoredTask{}, err
	}
	return t, nil
}
