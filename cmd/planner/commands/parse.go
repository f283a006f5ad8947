package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/hte-labs/hte-planner/internal/plan"
)

type ParseCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	file   string
	format string
}

// NewParseCommand returns the parse command.
func NewParseCommand(rootCmd *RootCommand, app *kingpin.Application) *ParseCommand {
	c := &ParseCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("parse", "Extract the tasks of a model response.")
	c.Cmd.Arg("file", "File with the model response, `-` or missing reads stdin.").StringVar(&c.file)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c ParseCommand) Name() string { return c.Cmd.FullCommand() }
func (c ParseCommand) PrintsResult() bool { return true }

func (c ParseCommand) Run(ctx context.Context) error {
	var r io.Reader = c.rootCmd.Stdin
	if c.file != "" && c.file != "-" {
		f, err := os.Open(c.file)
		if err != nil {
			return fmt.Errorf("could not open response file: %w", err)
		}
		defer f.Close()
		r = f
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}

	tasks, err := plan.ParseTasks(string(raw))
	if err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	c.rootCmd.Logger.Debugf("Parsed %d tasks", len(tasks))

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintTasks(tasks); err != nil {
		return fmt.Errorf("could not print tasks: %w", err)
	}

	return nil
}
