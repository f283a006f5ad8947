package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hte-labs/hte-planner/internal/model"
)

// TablePrinter prints planner information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

var _ Printer = &TablePrinter{}

// PrintPlan prints the plan goal followed by its tasks.
func (t *TablePrinter) PrintPlan(p model.Plan) error {
	fmt.Fprintf(t.writer, "Goal:       %s\n", p.GoalID)
	fmt.Fprintf(t.writer, "User:       %s\n", p.UserID)
	fmt.Fprintf(t.writer, "Task:       %s\n", p.GoalContent.Task)
	fmt.Fprintf(t.writer, "Duration:   %s\n", p.GoalContent.Duration)
	fmt.Fprintf(t.writer, "Situation:  %s\n", p.GoalContent.CurrentSituation)
	if p.GoalContent.AttachmentID != nil {
		fmt.Fprintf(t.writer, "Attachment: %s\n", *p.GoalContent.AttachmentID)
	}

	if len(p.Tasks) == 0 {
		return nil
	}
	fmt.Fprintln(t.writer)
	return t.PrintTasks(p.Tasks)
}

// PrintTasks prints tasks in a table format.
func (t *TablePrinter) PrintTasks(tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tSTART\tEND\tDONE\tTITLE")
	for _, task := range tasks {
		done := "no"
		if task.Complete {
			done = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", task.ID, task.StartAt, task.EndAt, done, task.Title)
	}

	return nil
}

// PrintGoalList prints goals in a table format.
func (t *TablePrinter) PrintGoalList(goals []model.Goal) error {
	if len(goals) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tSTATUS\tCREATED\tTITLE")
	for _, g := range goals {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", g.ID, g.Status, TimeAgo(g.CreatedAt), g.Title)
	}

	return nil
}

// PrintMessage prints a simple message.
func (t *TablePrinter) PrintMessage(msg string) error {
	_, err := fmt.Fprintln(t.writer, msg)
	return err
}
