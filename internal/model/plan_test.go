package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hte-labs/hte-planner/internal/model"
)

func validPlan() model.Plan {
	return model.Plan{
		UserID: "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		GoalID: "3fa85f64-5717-4562-b3fc-2c963f66afa6",
		GoalContent: model.GoalContent{
			Duration:         "2 weeks",
			CurrentSituation: "I know nothing about Go",
			Task:             "Learn Go basics",
		},
	}
}

func TestPlanValidate(t *testing.T) {
	tests := map[string]struct {
		plan   func() model.Plan
		expErr bool
	}{
		"Valid plan should be valid.": {
			plan: validPlan,
		},
		"Missing user id should fail.": {
			plan: func() model.Plan {
				p := validPlan()
				p.UserID = ""
				return p
			},
			expErr: true,
		},
		"Existing tasks with a duplicated id should fail.": {
			plan: func() model.Plan {
				p := validPlan()
				p.Tasks = []model.Task{{ID: "t1"}, {ID: "t1"}}
				return p
			},
			expErr: true,
		},
		"Non UUID goal id should fail.": {
			plan: func() model.Plan {
				p := validPlan()
				p.GoalID = "goal-1"
				return p
			},
			expErr: true,
		},
		"Missing duration should fail.": {
			plan: func() model.Plan {
				p := validPlan()
				p.GoalContent.Duration = ""
				return p
			},
			expErr: true,
		},
		"Missing current situation should fail.": {
			plan: func() model.Plan {
				p := validPlan()
				p.GoalContent.CurrentSituation = ""
				return p
			},
			expErr: true,
		},
		"Missing task should fail.": {
			plan: func() model.Plan {
				p := validPlan()
				p.GoalContent.Task = ""
				return p
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			p := test.plan()
			err := p.Validate()
			if test.expErr {
				assert.ErrorIs(t, err, model.ErrNotValid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPlanSortTasksIsStable(t *testing.T) {
	p := model.Plan{Tasks: []model.Task{
		{ID: "a", StartAt: "2026-03-02"},
		{ID: "b", StartAt: "2026-03-01"},
		{ID: "c", StartAt: "2026-03-02"},
		{ID: "d", StartAt: "2026-03-01"},
	}}

	p.SortTasks()

	var ids []string
	for _, task := range p.Tasks {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
}

func TestPlanAddTasks(t *testing.T) {
	tests := map[string]struct {
		existing []model.Task
		add      []model.Task
		expIDs   []string
	}{
		"New IDs should be kept.": {
			existing: []model.Task{{ID: "t0"}},
			add:      []model.Task{{ID: "t1"}, {ID: "t2"}},
			expIDs:   []string{"t0", "t1", "t2"},
		},
		"An ID used by an existing task should be renamed.": {
			existing: []model.Task{{ID: "t1"}},
			add:      []model.Task{{ID: "t1"}},
			expIDs:   []string{"t1", "t1-2"},
		},
		"Renamed IDs should skip the ones already taken.": {
			existing: []model.Task{{ID: "t1"}, {ID: "t1-2"}},
			add:      []model.Task{{ID: "t1"}, {ID: "t1"}},
			expIDs:   []string{"t1", "t1-2", "t1-3", "t1-4"},
		},
		"Adding to an empty plan should keep the IDs.": {
			add:    []model.Task{{ID: "a"}},
			expIDs: []string{"a"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			p := model.Plan{Tasks: test.existing}
			p.AddTasks(test.add...)

			var ids []string
			for _, task := range p.Tasks {
				ids = append(ids, task.ID)
			}
			assert.Equal(t, test.expIDs, ids)
		})
	}
}

func TestPlanCopyIsIndependent(t *testing.T) {
	attachment := "att-1"
	p := validPlan()
	p.GoalContent.AttachmentID = &attachment
	p.Tasks = []model.Task{{ID: "t1"}}

	cp := p.Copy()
	cp.Tasks[0].ID = "changed"
	*cp.GoalContent.AttachmentID = "changed"

	assert.Equal(t, "t1", p.Tasks[0].ID)
	assert.Equal(t, "att-1", *p.GoalContent.AttachmentID)
}

func TestEventTerminal(t *testing.T) {
	assert.False(t, model.NewStatusEvent("working").Terminal())
	assert.True(t, model.NewErrorEvent("boom").Terminal())
	assert.True(t, model.NewCompletedEvent(validPlan()).Terminal())
}
