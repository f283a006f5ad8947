package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hte-labs/hte-planner/internal/model"
)

// ParseTasks extracts the tasks JSON array embedded in a completion response.
//
// The array is located using the first `[` and the last `]` of the text, this
// is not JSON aware so brackets in the surrounding text can produce wrong
// boundaries. Task IDs must be unique in the array. Tasks are returned in the
// same order they appear.
func ParseTasks(raw string) ([]model.Task, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return nil, &ParseError{Kind: ParseErrorKindNoArrayFound}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:end+1]), &elems); err != nil {
		return nil, &ParseError{Kind: ParseErrorKindInvalidJSON, Detail: err.Error()}
	}

	tasks := make([]model.Task, 0, len(elems))
	seen := make(map[string]struct{}, len(elems))
	for i, elem := range elems {
		task, err := parseTask(elem)
		if err != nil {
			return nil, &ParseError{Kind: ParseErrorKindSchemaViolation, Index: i, Detail: err.Error()}
		}
		if _, ok := seen[task.ID]; ok {
			return nil, &ParseError{Kind: ParseErrorKindSchemaViolation, Index: i, Detail: fmt.Sprintf("duplicated task_id %q", task.ID)}
		}
		seen[task.ID] = struct{}{}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

func parseTask(data json.RawMessage) (model.Task, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return model.Task{}, fmt.Errorf("task must be a JSON object")
	}

	var t model.Task
	required := []struct {
		name string
		dst  *string
	}{
		{name: "task_id", dst: &t.ID},
		{name: "start_at", dst: &t.StartAt},
		{name: "end_at", dst: &t.EndAt},
		{name: "title", dst: &t.Title},
		{name: "action_plan", dst: &t.ActionPlan},
		{name: "expected_outcome", dst: &t.ExpectedOutcome},
	}
	for _, f := range required {
		v, ok := fields[f.name]
		if !ok {
			return model.Task{}, fmt.Errorf("missing required field %q", f.name)
		}
		var s *string
		if err := json.Unmarshal(v, &s); err != nil || s == nil {
			return model.Task{}, fmt.Errorf("field %q must be a string", f.name)
		}
		*f.dst = *s
	}

	if strings.TrimSpace(t.ID) == "" {
		return model.Task{}, fmt.Errorf("field %q can't be empty", "task_id")
	}

	if v, ok := fields["complete"]; ok {
		var b *bool
		if err := json.Unmarshal(v, &b); err != nil {
			return model.Task{}, fmt.Errorf("field %q must be a boolean", "complete")
		}
		if b != nil {
			t.Complete = *b
		}
	}

	return t, nil
}
