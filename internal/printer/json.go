package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/hte-labs/hte-planner/internal/model"
)

// JSONPrinter prints planner information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

var _ Printer = &JSONPrinter{}

// goalListItem represents a goal in the list output (subset of fields).
type goalListItem struct {
	ID        string    `json:"goal_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintPlan prints the plan using its API representation.
func (j *JSONPrinter) PrintPlan(p model.Plan) error {
	return j.encode(p)
}

// PrintTasks prints the tasks using their API representation.
func (j *JSONPrinter) PrintTasks(tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	return j.encode(tasks)
}

// PrintGoalList prints goals in JSON format with a subset of fields.
func (j *JSONPrinter) PrintGoalList(goals []model.Goal) error {
	items := make([]goalListItem, len(goals))
	for i, g := range goals {
		items[i] = goalListItem{
			ID:        g.ID,
			Title:     g.Title,
			Status:    string(g.Status),
			CreatedAt: g.CreatedAt,
		}
	}
	return j.encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
