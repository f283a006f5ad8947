package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hte-labs/hte-planner/internal/log"
	"github.com/hte-labs/hte-planner/internal/model"
	"github.com/hte-labs/hte-planner/internal/storage/memory"
)

const (
	userID = "5f0c7a8e-3c1e-4d2a-9b1f-1a2b3c4d5e6f"
	goalID = "8a1d2f3e-4b5c-4d6e-8f70-8192a3b4c5d6"
)

func planFixture() model.Plan {
	return model.Plan{
		UserID: userID,
		GoalID: goalID,
		GoalContent: model.GoalContent{
			Duration:         "2 weeks",
			CurrentSituation: "Beginner",
			Task:             "Learn Go",
		},
		Tasks: []model.Task{
			{ID: "t2", StartAt: "2026-03-01", EndAt: "2026-03-01", Title: "Setup"},
			{ID: "t1", StartAt: "2026-03-02", EndAt: "2026-03-04", Title: "Read"},
		},
	}
}

func TestRepositoryCRUD(t *testing.T) {
	tests := map[string]struct {
		actions func(ctx context.Context, t *testing.T, repo *memory.Repository) error
		expErr  error
	}{
		"Creating and getting a user should work.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateUser(ctx, model.User{ID: userID, Name: "ana"}))

				u, err := repo.GetUser(ctx, userID)
				require.NoError(t, err)
				assert.Equal(t, "ana", u.Name)
				return nil
			},
		},

		"Creating a duplicate user should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateUser(ctx, model.User{ID: userID}))
				return repo.CreateUser(ctx, model.User{ID: userID})
			},
			expErr: model.ErrAlreadyExists,
		},

		"Getting a missing user should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				_, err := repo.GetUser(ctx, "missing")
				return err
			},
			expErr: model.ErrNotFound,
		},

		"Updating a missing user should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				return repo.UpdateUser(ctx, model.User{ID: "missing"})
			},
			expErr: model.ErrNotFound,
		},

		"Creating a goal without user should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				return repo.CreateGoal(ctx, model.Goal{ID: goalID, UserID: userID})
			},
			expErr: model.ErrNotFound,
		},

		"Listing goals should return the newest first.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				now := time.Now().UTC()
				require.NoError(t, repo.CreateUser(ctx, model.User{ID: userID}))
				require.NoError(t, repo.CreateGoal(ctx, model.Goal{ID: "g1", UserID: userID, CreatedAt: now.Add(-time.Hour)}))
				require.NoError(t, repo.CreateGoal(ctx, model.Goal{ID: "g2", UserID: userID, CreatedAt: now}))

				goals, err := repo.ListGoalsByUser(ctx, userID)
				require.NoError(t, err)
				require.Len(t, goals, 2)
				assert.Equal(t, "g2", goals[0].ID)
				assert.Equal(t, "g1", goals[1].ID)
				return nil
			},
		},

		"Updating a goal should work.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateUser(ctx, model.User{ID: userID}))
				require.NoError(t, repo.CreateGoal(ctx, model.Goal{ID: goalID, UserID: userID, Status: model.GoalStatusActive}))
				require.NoError(t, repo.UpdateGoal(ctx, model.Goal{ID: goalID, UserID: userID, Status: model.GoalStatusCompleted}))

				g, err := repo.GetGoal(ctx, goalID)
				require.NoError(t, err)
				assert.Equal(t, model.GoalStatusCompleted, g.Status)
				return nil
			},
		},

		"Task IDs should be unique per goal only.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateUser(ctx, model.User{ID: userID}))
				require.NoError(t, repo.CreateGoal(ctx, model.Goal{ID: "g1", UserID: userID}))
				require.NoError(t, repo.CreateGoal(ctx, model.Goal{ID: "g2", UserID: userID}))
				require.NoError(t, repo.CreateTask(ctx, model.StoredTask{GoalID: "g1", Task: model.Task{ID: "t1"}}))
				require.NoError(t, repo.CreateTask(ctx, model.StoredTask{GoalID: "g2", Task: model.Task{ID: "t1"}}))

				return repo.CreateTask(ctx, model.StoredTask{GoalID: "g1", Task: model.Task{ID: "t1"}})
			},
			expErr: model.ErrAlreadyExists,
		},

		"Updating and deleting a task should work.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateUser(ctx, model.User{ID: userID}))
				require.NoError(t, repo.CreateGoal(ctx, model.Goal{ID: goalID, UserID: userID}))
				require.NoError(t, repo.CreateTask(ctx, model.StoredTask{GoalID: goalID, Task: model.Task{ID: "t1"}}))
				require.NoError(t, repo.UpdateTask(ctx, model.StoredTask{GoalID: goalID, Task: model.Task{ID: "t1", Complete: true}}))

				task, err := repo.GetTask(ctx, goalID, "t1")
				require.NoError(t, err)
				assert.True(t, task.Complete)

				require.NoError(t, repo.DeleteTask(ctx, goalID, "t1"))
				_, err = repo.GetTask(ctx, goalID, "t1")
				return err
			},
			expErr: model.ErrNotFound,
		},

		"Deleting a user should delete its goals and tasks.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.SavePlan(ctx, planFixture()))
				require.NoError(t, repo.DeleteUser(ctx, userID))

				tasks, err := repo.ListTasksByGoal(ctx, goalID)
				require.NoError(t, err)
				assert.Empty(t, tasks)

				_, err = repo.GetGoal(ctx, goalID)
				return err
			},
			expErr: model.ErrNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: log.Noop})
			require.NoError(t, err)

			err = test.actions(context.Background(), t, repo)
			if test.expErr != nil {
				assert.True(t, errors.Is(err, test.expErr), "expected %v, got %v", test.expErr, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRepositorySavePlan(t *testing.T) {
	ctx := context.Background()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	require.NoError(t, repo.SavePlan(ctx, planFixture()))

	// The user is created on the fly.
	_, err = repo.GetUser(ctx, userID)
	require.NoError(t, err)

	g, err := repo.GetGoal(ctx, goalID)
	require.NoError(t, err)
	assert.Equal(t, "Learn Go", g.Title)
	assert.Equal(t, "Beginner", g.Description)
	assert.Equal(t, model.GoalStatusActive, g.Status)

	p, err := repo.GetPlan(ctx, goalID)
	require.NoError(t, err)
	exp := planFixture()
	exp.SortTasks()
	assert.Equal(t, exp, *p)

	// Saving again replaces the tasks.
	second := planFixture()
	second.Tasks = []model.Task{{ID: "t9", StartAt: "2026-04-01", EndAt: "2026-04-02", Title: "Only"}}
	require.NoError(t, repo.SavePlan(ctx, second))

	tasks, err := repo.ListTasksByGoal(ctx, goalID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t9", tasks[0].ID)
}

func TestRepositorySavePlanRejectsDuplicatedTasks(t *testing.T) {
	ctx := context.Background()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	p := planFixture()
	p.Tasks = append(p.Tasks, p.Tasks[0])
	err = repo.SavePlan(ctx, p)
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	_, err = repo.GetGoal(ctx, goalID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
