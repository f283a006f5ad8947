package model

import "errors"

// Sentinel errors shared by storage, jobs and the API, callers check them with errors.Is.
var (
	// ErrNotFound means the user, goal, task or job doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists means the ID is already taken, e.g. a job for the same goal is still running.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid means the request or the generated data failed validation.
	ErrNotValid = errors.New("not valid")
)
