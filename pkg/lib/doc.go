// Package lib provides a Go SDK to generate goal plans with a planner API.
//
// The planner API generates the tasks of a goal using an LLM. Generations run
// in background on the server and their progress is streamed as server sent
// events. This package hides the HTTP and stream details.
//
// # Quick Start
//
// Create a client, start a generation and follow it until it ends:
//
//	client, err := lib.New(lib.Config{BaseURL: "http://localhost:8000"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	plan, err := client.GenerateAndStream(ctx, lib.Plan{
//	    UserID: "5f0c7a8e-3c1e-4d2a-9b1f-1a2b3c4d5e6f",
//	    GoalID: "8a1d2f3e-4b5c-4d6e-8f70-8192a3b4c5d6",
//	    GoalContent: lib.GoalContent{
//	        Duration:         "2 weeks",
//	        CurrentSituation: "Beginner",
//	        Task:             "Learn Go",
//	    },
//	}, func(e lib.Event) error {
//	    fmt.Println(e.Type, e.Message)
//	    return nil
//	})
//
// # Background Generation
//
// [Client.Generate] only starts the generation, [Client.Stream] follows it
// later. A stream only receives the events published after it's attached,
// except the terminal event that is replayed to late streams for a short
// grace period after the generation ends:
//
//	goalID, _ := client.Generate(ctx, plan)
//	terminal, _ := client.Stream(ctx, goalID, nil)
//
// When the events don't matter use [Client.GenerateSync], it blocks until the
// plan is generated.
//
// # Stored Goals
//
// When the API stores the generated plans they can be retrieved with
// [Client.GetGoal].
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: The goal or its generation don't exist.
//   - [ErrAlreadyExists]: A generation of the same goal is already running.
//   - [ErrNotValid]: The submitted plan is not valid.
//   - [ErrGenerationFailed]: The generation ended with an error.
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines.
package lib
