package storage

import (
	"time"

	"github.com/hte-labs/hte-planner/internal/model"
)

const maxGoalTitleLen = 120

// GoalFromPlan maps a generated plan into its persisted goal.
func GoalFromPlan(p model.Plan, now time.Time) model.Goal {
	gc := p.GoalContent
	title := []rune(gc.Task)
	if len(title) > maxGoalTitleLen {
		title = title[:maxGoalTitleLen]
	}

	return model.Goal{
		ID:           p.GoalID,
		UserID:       p.UserID,
		Title:        string(title),
		Description:  gc.CurrentSituation,
		Requirements: &gc,
		Status:       model.GoalStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// PlanFromGoal rebuilds a plan from its persisted goal and tasks.
func PlanFromGoal(g model.Goal, tasks []model.StoredTask) model.Plan {
	p := model.Plan{
		UserID: g.UserID,
		GoalID: g.ID,
		Tasks:  make([]model.Task, 0, len(tasks)),
	}
	if g.Requirements != nil {
		p.GoalContent = *g.Requirements
	}
	for _, t := range tasks {
		p.Tasks = append(p.Tasks, t.Task)
	}
	p.SortTasks()

	return p
}
