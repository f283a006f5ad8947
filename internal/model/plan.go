package model

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// GoalContent is the user description of a goal, it's the input of a plan generation.
type GoalContent struct {
	Duration         string  `json:"duration"`
	CurrentSituation string  `json:"current_situation"`
	Task             string  `json:"task"`
	AttachmentID     *string `json:"attachment_id"`
}

// Task is a single actionable step of a plan.
type Task struct {
	ID              string `json:"task_id"`
	StartAt         string `json:"start_at"` // YYYY-MM-DD.
	EndAt           string `json:"end_at"`   // YYYY-MM-DD.
	Title           string `json:"title"`
	ActionPlan      string `json:"action_plan"`
	ExpectedOutcome string `json:"expected_outcome"`
	Complete        bool   `json:"complete"`
}

// Plan is a goal with the tasks that achieve it, tasks are sorted by start date.
type Plan struct {
	UserID      string      `json:"user_id"`
	GoalID      string      `json:"goal_id"`
	GoalContent GoalContent `json:"goal_content"`
	Tasks       []Task      `json:"tasks_content"`
}

// Validate validates the plan submission.
func (p *Plan) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("user_id is required: %w", ErrNotValid)
	}
	if _, err := uuid.Parse(p.UserID); err != nil {
		return fmt.Errorf("user_id must be an UUID: %w", ErrNotValid)
	}
	if p.GoalID == "" {
		return fmt.Errorf("goal_id is required: %w", ErrNotValid)
	}
	if _, err := uuid.Parse(p.GoalID); err != nil {
		return fmt.Errorf("goal_id must be an UUID: %w", ErrNotValid)
	}

	gc := p.GoalContent
	if gc.Duration == "" {
		return fmt.Errorf("goal_content.duration is required: %w", ErrNotValid)
	}
	if gc.CurrentSituation == "" {
		return fmt.Errorf("goal_content.current_situation is required: %w", ErrNotValid)
	}
	if gc.Task == "" {
		return fmt.Errorf("goal_content.task is required: %w", ErrNotValid)
	}

	ids := make(map[string]struct{}, len(p.Tasks))
	for _, t := range p.Tasks {
		if _, ok := ids[t.ID]; ok {
			return fmt.Errorf("tasks_content has a duplicated task_id %q: %w", t.ID, ErrNotValid)
		}
		ids[t.ID] = struct{}{}
	}

	return nil
}

// AddTasks appends tasks to the plan. A task whose ID is already used in the
// plan gets the first free `<id>-<n>` ID, n starting at 2.
func (p *Plan) AddTasks(tasks ...Task) {
	used := make(map[string]struct{}, len(p.Tasks)+len(tasks))
	for _, t := range p.Tasks {
		used[t.ID] = struct{}{}
	}

	for _, t := range tasks {
		if _, ok := used[t.ID]; ok {
			base := t.ID
			for n := 2; ; n++ {
				id := fmt.Sprintf("%s-%d", base, n)
				if _, ok := used[id]; !ok {
					t.ID = id
					break
				}
			}
		}
		used[t.ID] = struct{}{}
		p.Tasks = append(p.Tasks, t)
	}
}

// SortTasks sorts the plan tasks ascending by start date. Tasks starting on the
// same date keep their relative order.
func (p *Plan) SortTasks() {
	sort.SliceStable(p.Tasks, func(i, j int) bool {
		return p.Tasks[i].StartAt < p.Tasks[j].StartAt
	})
}

// Copy returns a deep copy of the plan.
func (p Plan) Copy() Plan {
	cp := p
	if p.GoalContent.AttachmentID != nil {
		id := *p.GoalContent.AttachmentID
		cp.GoalContent.AttachmentID = &id
	}
	if p.Tasks != nil {
		cp.Tasks = make([]Task, len(p.Tasks))
		copy(cp.Tasks, p.Tasks)
	}
	return cp
}
