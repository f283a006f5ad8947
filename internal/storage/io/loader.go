package io

import (
	"context"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/hte-labs/hte-planner/internal/model"
)

// GoalYAMLRepository loads goal plans from YAML files. JSON files are valid YAML
// so both formats are supported.
type GoalYAMLRepository struct {
	fs fs.FS
}

// NewGoalYAMLRepository creates a new YAML goal repository.
func NewGoalYAMLRepository(filesystem fs.FS) *GoalYAMLRepository {
	return &GoalYAMLRepository{fs: filesystem}
}

// GetPlan loads a plan from a YAML file and returns a validated domain model.
func (r *GoalYAMLRepository) GetPlan(ctx context.Context, path string) (model.Plan, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.Plan{}, fmt.Errorf("reading goal file: %w", err)
	}

	if ctx.Err() != nil {
		return model.Plan{}, ctx.Err()
	}

	var g GoalFile
	if err := yaml.Unmarshal(data, &g); err != nil {
		return model.Plan{}, fmt.Errorf("parsing YAML: %w", err)
	}

	p := g.toModel()
	if err := p.Validate(); err != nil {
		return model.Plan{}, fmt.Errorf("invalid goal: %w", err)
	}

	return p, nil
}

// GoalFile represents the YAML structure of a goal file.
type GoalFile struct {
	UserID      string          `yaml:"user_id"`
	GoalID      string          `yaml:"goal_id"`
	GoalContent GoalContentFile `yaml:"goal_content"`
	Tasks       []TaskFile      `yaml:"tasks_content"`
}

// GoalContentFile represents the YAML structure of the goal requirements.
type GoalContentFile struct {
	Duration         string  `yaml:"duration"`
	CurrentSituation string  `yaml:"current_situation"`
	Task             string  `yaml:"task"`
	AttachmentID     *string `yaml:"attachment_id,omitempty"`
}

// TaskFile represents the YAML structure of an already planned task.
type TaskFile struct {
	ID              string `yaml:"task_id"`
	StartAt         string `yaml:"start_at"`
	EndAt           string `yaml:"end_at"`
	Title           string `yaml:"title"`
	ActionPlan      string `yaml:"action_plan"`
	ExpectedOutcome string `yaml:"expected_outcome"`
	Complete        bool   `yaml:"complete"`
}

func (g GoalFile) toModel() model.Plan {
	p := model.Plan{
		UserID: g.UserID,
		GoalID: g.GoalID,
		GoalContent: model.GoalContent{
			Duration:         g.GoalContent.Duration,
			CurrentSituation: g.GoalContent.CurrentSituation,
			Task:             g.GoalContent.Task,
			AttachmentID:     g.GoalContent.AttachmentID,
		},
		Tasks: make([]model.Task, 0, len(g.Tasks)),
	}

	for _, t := range g.Tasks {
		p.Tasks = append(p.Tasks, model.Task{
			ID:              t.ID,
			StartAt:         t.StartAt,
			EndAt:           t.EndAt,
			Title:           t.Title,
			ActionPlan:      t.ActionPlan,
			ExpectedOutcome: t.ExpectedOutcome,
			Complete:        t.Complete,
		})
	}

	return p
}
