package printer

import "github.com/hte-labs/hte-planner/internal/model"

// Printer knows how to print planner information in different formats.
type Printer interface {
	PrintPlan(p model.Plan) error
	PrintTasks(tasks []model.Task) error
	PrintGoalList(goals []model.Goal) error
	PrintMessage(msg string) error
}
