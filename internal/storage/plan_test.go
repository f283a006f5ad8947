package storage_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hte-labs/hte-planner/internal/model"
	"github.com/hte-labs/hte-planner/internal/storage"
)

func TestGoalPlanMapping(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := model.Plan{
		UserID: "u1",
		GoalID: "g1",
		GoalContent: model.GoalContent{
			Duration:         "2 weeks",
			CurrentSituation: "Beginner",
			Task:             strings.Repeat("a", 200),
		},
		Tasks: []model.Task{{ID: "t1", StartAt: "2026-03-02"}, {ID: "t2", StartAt: "2026-03-01"}},
	}

	g := storage.GoalFromPlan(p, now)
	assert.Equal(t, "g1", g.ID)
	assert.Equal(t, "u1", g.UserID)
	assert.Len(t, g.Title, 120)
	assert.Equal(t, "Beginner", g.Description)
	assert.Equal(t, model.GoalStatusActive, g.Status)
	assert.Equal(t, p.GoalContent, *g.Requirements)

	got := storage.PlanFromGoal(g, []model.StoredTask{
		{GoalID: "g1", Task: p.Tasks[0]},
		{GoalID: "g1", Task: p.Tasks[1]},
	})
	assert.Equal(t, "g1", got.GoalID)
	assert.Equal(t, p.GoalContent, got.GoalContent)
	assert.Equal(t, []model.Task{p.Tasks[1], p.Tasks[0]}, got.Tasks)
}
