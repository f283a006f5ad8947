package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hte-labs/hte-planner/internal/log"
	"github.com/hte-labs/hte-planner/internal/model"
	"github.com/hte-labs/hte-planner/internal/storage"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

type taskKey struct {
	goalID string
	taskID string
}

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	users  map[string]model.User
	goals  map[string]model.Goal
	tasks  map[taskKey]model.StoredTask
	mu     sync.RWMutex
	logger log.Logger
}

var _ storage.Repository = &Repository{}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		users:  make(map[string]model.User),
		goals:  make(map[string]model.Goal),
		tasks:  make(map[taskKey]model.StoredTask),
		logger: cfg.Logger,
	}, nil
}

// CreateUser creates a new user in the repository.
func (r *Repository) CreateUser(ctx context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID, model.ErrAlreadyExists)
	}

	r.users[u.ID] = u
	r.logger.Debugf("Created user in repository: %s", u.ID)

	return nil
}

// GetUser retrieves a user by ID.
func (r *Repository) GetUser(ctx context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, model.ErrNotFound)
	}

	return &u, nil
}

// UpdateUser updates an existing user.
func (r *Repository) UpdateUser(ctx context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.ID]; !ok {
		return fmt.Errorf("user %s: %w", u.ID, model.ErrNotFound)
	}

	r.users[u.ID] = u
	return nil
}

// DeleteUser deletes a user with its goals and tasks.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, model.ErrNotFound)
	}

	for goalID, g := range r.goals {
		if g.UserID == id {
			r.deleteGoal(goalID)
		}
	}
	delete(r.users, id)
	r.logger.Debugf("Deleted user from repository: %s", id)

	return nil
}

// CreateGoal creates a new goal, its user must exist.
func (r *Repository) CreateGoal(ctx context.Context, g model.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[g.UserID]; !ok {
		return fmt.Errorf("user %s: %w", g.UserID, model.ErrNotFound)
	}
	if _, ok := r.goals[g.ID]; ok {
		return fmt.Errorf("goal %s: %w", g.ID, model.ErrAlreadyExists)
	}

	r.goals[g.ID] = copyGoal(g)
	r.logger.Debugf("Created goal in repository: %s", g.ID)

	return nil
}

// GetGoal retrieves a goal by ID.
func (r *Repository) GetGoal(ctx context.Context, id string) (*model.Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.goals[id]
	if !ok {
		return nil, fmt.Errorf("goal %s: %w", id, model.ErrNotFound)
	}

	g = copyGoal(g)
	return &g, nil
}

// ListGoalsByUser returns the goals of a user, newest first.
func (r *Repository) ListGoalsByUser(ctx context.Context, userID string) ([]model.Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	goals := []model.Goal{}
	for _, g := range r.goals {
		if g.UserID == userID {
			goals = append(goals, copyGoal(g))
		}
	}
	sort.SliceStable(goals, func(i, j int) bool { return goals[i].CreatedAt.After(goals[j].CreatedAt) })

	return goals, nil
}

// UpdateGoal updates an existing goal.
func (r *Repository) UpdateGoal(ctx context.Context, g model.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.goals[g.ID]; !ok {
		return fmt.Errorf("goal %s: %w", g.ID, model.ErrNotFound)
	}

	r.goals[g.ID] = copyGoal(g)
	return nil
}

// DeleteGoal deletes a goal with its tasks.
func (r *Repository) DeleteGoal(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.goals[id]; !ok {
		return fmt.Errorf("goal %s: %w", id, model.ErrNotFound)
	}

	r.deleteGoal(id)
	r.logger.Debugf("Deleted goal from repository: %s", id)

	return nil
}

// CreateTask creates a new task, its goal must exist.
func (r *Repository) CreateTask(ctx context.Context, t model.StoredTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.createTask(t)
}

// GetTask retrieves a goal task.
func (r *Repository) GetTask(ctx context.Context, goalID, taskID string) (*model.StoredTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[taskKey{goalID: goalID, taskID: taskID}]
	if !ok {
		return nil, fmt.Errorf("task %s of goal %s: %w", taskID, goalID, model.ErrNotFound)
	}

	return &t, nil
}

// ListTasksByGoal returns the goal tasks sorted by start date.
func (r *Repository) ListTasksByGoal(ctx context.Context, goalID string) ([]model.StoredTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.goalTasks(goalID), nil
}

// UpdateTask updates an existing task.
func (r *Repository) UpdateTask(ctx context.Context, t model.StoredTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := taskKey{goalID: t.GoalID, taskID: t.ID}
	_, ok := r.tasks[key]
	if !ok {
		return fmt.Errorf("task %s of goal %s: %w", t.ID, t.GoalID, model.ErrNotFound)
	}

	r.tasks[key] = t
	return nil
}

// DeleteTask deletes a goal task.
func (r *Repository) DeleteTask(ctx context.Context, goalID, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := taskKey{goalID: goalID, taskID: taskID}
	if _, ok := r.tasks[key]; !ok {
		return fmt.Errorf("task %s of goal %s: %w", taskID, goalID, model.ErrNotFound)
	}

	delete(r.tasks, key)
	return nil
}

// SavePlan stores a generated plan.
func (r *Repository) SavePlan(ctx context.Context, p model.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := map[string]struct{}{}
	for _, t := range p.Tasks {
		if _, ok := seen[t.ID]; ok {
			return fmt.Errorf("task %s is duplicated: %w", t.ID, model.ErrAlreadyExists)
		}
		seen[t.ID] = struct{}{}
	}

	now := time.Now().UTC()
	g := storage.GoalFromPlan(p, now)
	if existing, ok := r.goals[p.GoalID]; ok {
		if existing.UserID != p.UserID {
			return fmt.Errorf("goal %s belongs to another user: %w", p.GoalID, model.ErrNotValid)
		}
		g.CreatedAt = existing.CreatedAt
		g.Status = existing.Status
	}

	if _, ok := r.users[p.UserID]; !ok {
		r.users[p.UserID] = model.User{ID: p.UserID, CreatedAt: now, UpdatedAt: now}
	}

	r.goals[g.ID] = g
	for key := range r.tasks {
		if key.goalID == g.ID {
			delete(r.tasks, key)
		}
	}
	for _, t := range p.Tasks {
		if err := r.createTask(model.StoredTask{GoalID: g.ID, Task: t}); err != nil {
			return err
		}
	}

	r.logger.Debugf("Saved plan of goal %s with %d tasks", g.ID, len(p.Tasks))
	return nil
}

// GetPlan rebuilds the plan of a goal.
func (r *Repository) GetPlan(ctx context.Context, goalID string) (*model.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.goals[goalID]
	if !ok {
		return nil, fmt.Errorf("goal %s: %w", goalID, model.ErrNotFound)
	}

	p := storage.PlanFromGoal(copyGoal(g), r.goalTasks(goalID))
	return &p, nil
}

func (r *Repository) createTask(t model.StoredTask) error {
	if _, ok := r.goals[t.GoalID]; !ok {
		return fmt.Errorf("goal %s: %w", t.GoalID, model.ErrNotFound)
	}
	key := taskKey{goalID: t.GoalID, taskID: t.ID}
	if _, ok := r.tasks[key]; ok {
		return fmt.Errorf("task %s of goal %s: %w", t.ID, t.GoalID, model.ErrAlreadyExists)
	}

	r.tasks[key] = t
	return nil
}

func (r *Repository) goalTasks(goalID string) []model.StoredTask {
	tasks := []model.StoredTask{}
	for key, t := range r.tasks {
		if key.goalID == goalID {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].StartAt != tasks[j].StartAt {
			return tasks[i].StartAt < tasks[j].StartAt
		}
		return tasks[i].ID < tasks[j].ID
	})

	return tasks
}

func (r *Repository) deleteGoal(id string) {
	for key := range r.tasks {
		if key.goalID == id {
			delete(r.tasks, key)
		}
	}
	delete(r.goals, id)
}

func copyGoal(g model.Goal) model.Goal {
	if g.Requirements != nil {
		req := *g.Requirements
		g.Requirements = &req
	}
	return g
}
