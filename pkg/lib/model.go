package lib

import (
	"errors"
	"net/http"
	"time"

	"github.com/hte-labs/hte-planner/internal/model"
)

// EventType identifies the kind of a plan generation progress event.
type EventType string

const (
	// EventTypeStatus is an informative progress event. A generation emits any
	// number of them before its terminal event.
	EventTypeStatus EventType = "status"
	// EventTypeCompleted is the terminal event of a successful generation, it
	// carries the generated plan.
	EventTypeCompleted EventType = "completed"
	// EventTypeError is the terminal event of a failed generation.
	EventTypeError EventType = "error"
)

// GoalContent is what the user wants to achieve, it's the input of a plan generation.
type GoalContent struct {
	// Duration is the time available, free text (e.g. "2 weeks").
	Duration string
	// CurrentSituation describes where the user starts from.
	CurrentSituation string
	// Task is the goal itself.
	Task string
	// AttachmentID is an optional reference, it's not used by the generation.
	AttachmentID *string
}

// Task is a single actionable step of a plan.
type Task struct {
	ID string
	// StartAt and EndAt are YYYY-MM-DD dates.
	StartAt         string
	EndAt           string
	Title           string
	ActionPlan      string
	ExpectedOutcome string
	Complete        bool
}

// Plan is a goal with the tasks that achieve it.
//
// When submitting a plan the tasks are the already planned ones, they are kept
// and merged with the generated ones. Returned plans have their tasks sorted by
// start date.
type Plan struct {
	// UserID is the UUID of the goal owner.
	UserID string
	// GoalID is the UUID of the goal, it also identifies the generation.
	GoalID      string
	GoalContent GoalContent
	Tasks       []Task
}

// Event is a plan generation progress event.
type Event struct {
	ID   string
	Type EventType
	// Message is the status description or the failure reason.
	Message string
	// Plan is only set on [EventTypeCompleted] events.
	Plan *Plan
	Time time.Time
}

// Terminal returns true if the event ends the generation stream.
func (e Event) Terminal() bool {
	return e.Type == EventTypeCompleted || e.Type == EventTypeError
}

// Sentinel errors returned by the SDK, use [errors.Is] to check them.
var (
	// ErrNotFound is returned when the goal or its generation don't exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a generation for the goal is already running.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when the submitted plan is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrGenerationFailed is returned when the plan generation ends with an error event.
	ErrGenerationFailed = errors.New("plan generation failed")
)

func mapStatusError(status int, err error) error {
	switch status {
	case http.StatusNotFound:
		return joinErrors(err, ErrNotFound)
	case http.StatusConflict:
		return joinErrors(err, ErrAlreadyExists)
	case http.StatusBadRequest:
		return joinErrors(err, ErrNotValid)
	case http.StatusBadGateway:
		return joinErrors(err, ErrGenerationFailed)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }

// --- Conversion helpers ---

func toInternalPlan(p Plan) model.Plan {
	tasks := make([]model.Task, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		tasks = append(tasks, model.Task{
			ID:              t.ID,
			StartAt:         t.StartAt,
			EndAt:           t.EndAt,
			Title:           t.Title,
			ActionPlan:      t.ActionPlan,
			ExpectedOutcome: t.ExpectedOutcome,
			Complete:        t.Complete,
		})
	}

	return model.Plan{
		UserID: p.UserID,
		GoalID: p.GoalID,
		GoalContent: model.GoalContent{
			Duration:         p.GoalContent.Duration,
			CurrentSituation: p.GoalContent.CurrentSituation,
			Task:             p.GoalContent.Task,
			AttachmentID:     p.GoalContent.AttachmentID,
		},
		Tasks: tasks,
	}
}

func fromInternalPlan(p model.Plan) Plan {
	tasks := make([]Task, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		tasks = append(tasks, Task{
			ID:              t.ID,
			StartAt:         t.StartAt,
			EndAt:           t.EndAt,
			Title:           t.Title,
			ActionPlan:      t.ActionPlan,
			ExpectedOutcome: t.ExpectedOutcome,
			Complete:        t.Complete,
		})
	}

	return Plan{
		UserID: p.UserID,
		GoalID: p.GoalID,
		GoalContent: GoalContent{
			Duration:         p.GoalContent.Duration,
			CurrentSituation: p.GoalContent.CurrentSituation,
			Task:             p.GoalContent.Task,
			AttachmentID:     p.GoalContent.AttachmentID,
		},
		Tasks: tasks,
	}
}
