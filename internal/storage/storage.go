package storage

import (
	"context"

	"github.com/hte-labs/hte-planner/internal/model"
)

// UserRepository is the interface for user persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, u model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, u model.User) error
	// DeleteUser deletes the user with all its goals and their tasks.
	DeleteUser(ctx context.Context, id string) error
}

// GoalRepository is the interface for goal persistence.
type GoalRepository interface {
	CreateGoal(ctx context.Context, g model.Goal) error
	GetGoal(ctx context.Context, id string) (*model.Goal, error)
	ListGoalsByUser(ctx context.Context, userID string) ([]model.Goal, error)
	UpdateGoal(ctx context.Context, g model.Goal) error
	// DeleteGoal deletes the goal with all its tasks.
	DeleteGoal(ctx context.Context, id string) error
}

// TaskRepository is the interface for goal task persistence. Task IDs are unique
// inside a goal.
type TaskRepository interface {
	CreateTask(ctx context.Context, t model.StoredTask) error
	GetTask(ctx context.Context, goalID, taskID string) (*model.StoredTask, error)
	// ListTasksByGoal returns the goal tasks sorted by start date.
	ListTasksByGoal(ctx context.Context, goalID string) ([]model.StoredTask, error)
	UpdateTask(ctx context.Context, t model.StoredTask) error
	DeleteTask(ctx context.Context, goalID, taskID string) error
}

// PlanRepository is the interface to store and load generated plans.
type PlanRepository interface {
	// SavePlan stores the plan atomically: ensures the user, upserts the goal and
	// replaces the goal tasks.
	SavePlan(ctx context.Context, p model.Plan) error
	// GetPlan rebuilds the plan of a goal.
	GetPlan(ctx context.Context, goalID string) (*model.Plan, error)
}

// Repository is the full persistence interface.
type Repository interface {
	UserRepository
	GoalRepository
	TaskRepository
	PlanRepository
}
