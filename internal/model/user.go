package model

import "time"

// GoalStatus is the lifecycle status of a persisted goal.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusArchived  GoalStatus = "archived"
)

// User is the owner of goals.
type User struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Goal is a persisted goal, Requirements stores the original goal content.
type Goal struct {
	ID           string
	UserID       string
	Title        string
	Description  string
	Requirements *GoalContent
	Status       GoalStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StoredTask is a persisted task of a goal.
type StoredTask struct {
	Task
	GoalID string
}
