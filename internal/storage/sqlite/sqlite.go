package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hte-labs/hte-planner/internal/log"
	"github.com/hte-labs/hte-planner/internal/model"
	"github.com/hte-labs/hte-planner/internal/storage"
	"github.com/hte-labs/hte-planner/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

var _ storage.Repository = &Repository{}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(migrations.MigratorConfig{DB: db, Logger: cfg.Logger})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateUser creates a new user in the repository.
func (r *Repository) CreateUser(ctx context.Context, u model.User) error {
	query := `INSERT INTO users (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, u.ID, u.Name, u.CreatedAt.Unix(), u.UpdatedAt.Unix())
	if err != nil {
		if isUniqueErr(err) {
			return fmt.Errorf("user %s: %w", u.ID, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert user: %w", err)
	}

	r.logger.Debugf("Created user in repository: %s", u.ID)
	return nil
}

// GetUser retrieves a user by ID.
func (r *Repository) GetUser(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT id, name, created_at, updated_at FROM users WHERE id = ?`

	var u model.User
	var createdAt, updatedAt int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Name, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query user: %w", err)
	}
	u.CreatedAt = timeFromUnix(createdAt)
	u.UpdatedAt = timeFromUnix(updatedAt)

	return &u, nil
}

// UpdateUser updates an existing user.
func (r *Repository) UpdateUser(ctx context.Context, u model.User) error {
	query := `UPDATE users SET name = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, u.Name, u.UpdatedAt.Unix(), u.ID)
	if err != nil {
		return fmt.Errorf("could not update user: %w", err)
	}

	return checkAffected(result, fmt.Sprintf("user %s", u.ID))
}

// DeleteUser deletes a user, its goals and tasks are deleted by cascade.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete user: %w", err)
	}

	if err := checkAffected(result, fmt.Sprintf("user %s", id)); err != nil {
		return err
	}

	r.logger.Debugf("Deleted user from repository: %s", id)
	return nil
}

// CreateGoal creates a new goal, its user must exist.
func (r *Repository) CreateGoal(ctx context.Context, g model.Goal) error {
	return r.insertGoal(ctx, r.db, g)
}

// GetGoal retrieves a goal by ID.
func (r *Repository) GetGoal(ctx context.Context, id string) (*model.Goal, error) {
	query := `
		SELECT id, user_id, title, description, requirements, status, created_at, updated_at
		FROM goals
		WHERE id = ?
	`

	g, err := scanGoal(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("goal %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query goal: %w", err)
	}

	return &g, nil
}

// ListGoalsByUser returns the goals of a user, newest first.
func (r *Repository) ListGoalsByUser(ctx context.Context, userID string) ([]model.Goal, error) {
	query := `
		SELECT id, user_id, title, description, requirements, status, created_at, updated_at
		FROM goals
		WHERE user_id = ?
		ORDER BY created_at DESC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("could not query goals: %w", err)
	}
	defer rows.Close()

	goals := []model.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		goals = append(goals, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return goals, nil
}

// UpdateGoal updates an existing goal.
func (r *Repository) UpdateGoal(ctx context.Context, g model.Goal) error {
	return r.updateGoal(ctx, r.db, g)
}

// DeleteGoal deletes a goal, its tasks are deleted by cascade.
func (r *Repository) DeleteGoal(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete goal: %w", err)
	}

	if err := checkAffected(result, fmt.Sprintf("goal %s", id)); err != nil {
		return err
	}

	r.logger.Debugf("Deleted goal from repository: %s", id)
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repository) insertGoal(ctx context.Context, db execer, g model.Goal) error {
	req, err := marshalRequirements(g.Requirements)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO goals (id, user_id, title, description, requirements, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query, g.ID, g.UserID, g.Title, g.Description, req, g.Status, g.CreatedAt.Unix(), g.UpdatedAt.Unix())
	if err != nil {
		switch {
		case isUniqueErr(err):
			return fmt.Errorf("goal %s: %w", g.ID, model.ErrAlreadyExists)
		case isForeignKeyErr(err):
			return fmt.Errorf("user %s: %w", g.UserID, model.ErrNotFound)
		}
		return fmt.Errorf("could not insert goal: %w", err)
	}

	r.logger.Debugf("Created goal in repository: %s", g.ID)
	return nil
}

func (r *Repository) updateGoal(ctx context.Context, db execer, g model.Goal) error {
	req, err := marshalRequirements(g.Requirements)
	if err != nil {
		return err
	}

	query := `
		UPDATE goals
		SET
			title = ?,
			description = ?,
			requirements = ?,
			status = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := db.ExecContext(ctx, query, g.Title, g.Description, req, g.Status, g.UpdatedAt.Unix(), g.ID)
	if err != nil {
		return fmt.Errorf("could not update goal: %w", err)
	}

	return checkAffected(result, fmt.Sprintf("goal %s", g.ID))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGoal(s scanner) (model.Goal, error) {
	var g model.Goal
	var req sql.NullString
	var createdAt, updatedAt int64

	err := s.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &req, &g.Status, &createdAt, &updatedAt)
	if err != nil {
		return model.Goal{}, err
	}

	if req.Valid && req.String != "" {
		var gc model.GoalContent
		if err := json.Unmarshal([]byte(req.String), &gc); err != nil {
			return model.Goal{}, fmt.Errorf("could not decode goal requirements: %w", err)
		}
		g.Requirements = &gc
	}
	g.CreatedAt = timeFromUnix(createdAt)
	g.UpdatedAt = timeFromUnix(updatedAt)

	return g, nil
}

func marshalRequirements(gc *model.GoalContent) (*string, error) {
	if gc == nil {
		return nil, nil
	}
	b, err := json.Marshal(gc)
	if err != nil {
		return nil, fmt.Errorf("could not encode goal requirements: %w", err)
	}
	s := string(b)
	return &s, nil
}

func checkAffected(result sql.Result, what string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return nil
}

func isUniqueErr(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") || strings.Contains(err.Error(), "PRIMARY KEY constraint failed")
}

func isForeignKeyErr(err error) bool {
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func timeFromUnix(unix int64) time.Time { return time.Unix(unix, 0).UTC() }
