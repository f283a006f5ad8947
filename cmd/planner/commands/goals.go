package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/hte-labs/hte-planner/internal/storage/sqlite"
)

// GoalsCommand is the parent command for stored goal subcommands.
type GoalsCommand struct {
	Cmd *kingpin.CmdClause

	format string
}

// NewGoalsCommand returns the goals parent command.
func NewGoalsCommand(app *kingpin.Application) *GoalsCommand {
	c := &GoalsCommand{}

	c.Cmd = app.Command("goals", "Query the stored goals.")
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

type GoalsListCommand struct {
	Cmd      *kingpin.CmdClause
	rootCmd  *RootCommand
	goalsCmd *GoalsCommand

	userID string
}

// NewGoalsListCommand returns the goals list command.
func NewGoalsListCommand(rootCmd *RootCommand, goalsCmd *GoalsCommand) *GoalsListCommand {
	c := &GoalsListCommand{rootCmd: rootCmd, goalsCmd: goalsCmd}

	c.Cmd = goalsCmd.Cmd.Command("list", "List the goals of a user.")
	c.Cmd.Arg("user-id", "User UUID.").Required().StringVar(&c.userID)

	return c
}

func (c GoalsListCommand) Name() string { return c.Cmd.FullCommand() }
func (c GoalsListCommand) PrintsResult() bool { return true }

func (c GoalsListCommand) Run(ctx context.Context) error {
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	goals, err := repo.ListGoalsByUser(ctx, c.userID)
	if err != nil {
		return fmt.Errorf("could not list goals: %w", err)
	}

	if err := newPrinter(c.goalsCmd.format, c.rootCmd.Stdout).PrintGoalList(goals); err != nil {
		return fmt.Errorf("could not print goals: %w", err)
	}

	return nil
}

type GoalsShowCommand struct {
	Cmd      *kingpin.CmdClause
	rootCmd  *RootCommand
	goalsCmd *GoalsCommand

	goalID string
}

// NewGoalsShowCommand returns the goals show command.
func NewGoalsShowCommand(rootCmd *RootCommand, goalsCmd *GoalsCommand) *GoalsShowCommand {
	c := &GoalsShowCommand{rootCmd: rootCmd, goalsCmd: goalsCmd}

	c.Cmd = goalsCmd.Cmd.Command("show", "Show a goal with its plan.")
	c.Cmd.Arg("goal-id", "Goal UUID.").Required().StringVar(&c.goalID)

	return c
}

func (c GoalsShowCommand) Name() string { return c.Cmd.FullCommand() }
func (c GoalsShowCommand) PrintsResult() bool { return true }

func (c GoalsShowCommand) Run(ctx context.Context) error {
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	p, err := repo.GetPlan(ctx, c.goalID)
	if err != nil {
		return fmt.Errorf("could not get goal: %w", err)
	}

	if err := newPrinter(c.goalsCmd.format, c.rootCmd.Stdout).PrintPlan(*p); err != nil {
		return fmt.Errorf("could not print goal: %w", err)
	}

	return nil
}
