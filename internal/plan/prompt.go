package plan

import (
	"encoding/json"
	"strings"

	"github.com/hte-labs/hte-planner/internal/model"
)

// SystemInstruction is the system instruction used to generate plans.
const SystemInstruction = "You are a professional goal planning assistant. You help users break down their goals into actionable tasks with realistic timelines."

// BuildPrompt returns the plan generation prompt for a goal.
func BuildPrompt(gc model.GoalContent) string {
	// GoalContent marshaling can't fail.
	goal, _ := json.MarshalIndent(gc, "", "  ")

	var b strings.Builder
	b.WriteString("Based on the following goal, create an actionable plan to achieve it.\n\n")
	b.WriteString("Goal information:\n")
	b.Write(goal)
	b.WriteString("\n\n")
	b.WriteString("Break the goal down into 5-10 tasks that fit the goal duration. ")
	b.WriteString("Return your response as a JSON array where each element has this exact structure:\n")
	b.WriteString(`[
  {
    "task_id": "<unique UUID>",
    "start_at": "<YYYY-MM-DD>",
    "end_at": "<YYYY-MM-DD>",
    "title": "<short task title>",
    "action_plan": "<detailed action plan>",
    "expected_outcome": "<what is achieved after the task>",
    "complete": false
  }
]`)
	b.WriteString("\n\nIMPORTANT:\n")
	b.WriteString("- Return ONLY a valid JSON array, no additional text.\n")
	b.WriteString("- start_at must not be after end_at for each task.\n")
	b.WriteString("- Make the timelines realistic and order the tasks from first to last.\n")

	return b.String()
}
