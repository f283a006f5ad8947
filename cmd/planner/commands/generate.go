package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/google/uuid"

	"github.com/hte-labs/hte-planner/internal/app/generate"
	"github.com/hte-labs/hte-planner/internal/jobs"
	"github.com/hte-labs/hte-planner/internal/metrics"
	"github.com/hte-labs/hte-planner/internal/model"
	"github.com/hte-labs/hte-planner/internal/storage"
	storageio "github.com/hte-labs/hte-planner/internal/storage/io"
	"github.com/hte-labs/hte-planner/internal/storage/sqlite"
)

type GenerateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	// Goal flags.
	goalFile     string
	userID       string
	goalID       string
	task         string
	duration     string
	situation    string
	attachmentID string

	configFile string
	llm        llmFlags
	timeout    time.Duration
	save       bool
	format     string
}

// NewGenerateCommand returns the generate command.
func NewGenerateCommand(rootCmd *RootCommand, app *kingpin.Application) *GenerateCommand {
	c := &GenerateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("generate", "Generate the plan of a goal and wait for it.")

	// Goal flags.
	c.Cmd.Flag("goal-file", "YAML goal file, replaces the goal flags.").Short('f').StringVar(&c.goalFile)
	c.Cmd.Flag("user-id", "Goal owner UUID, a random one is used if missing.").StringVar(&c.userID)
	c.Cmd.Flag("goal-id", "Goal UUID, a random one is used if missing.").StringVar(&c.goalID)
	c.Cmd.Flag("task", "What the user wants to achieve.").StringVar(&c.task)
	c.Cmd.Flag("duration", "Time available to achieve the goal.").StringVar(&c.duration)
	c.Cmd.Flag("situation", "Current situation of the user.").StringVar(&c.situation)
	c.Cmd.Flag("attachment-id", "Optional attachment reference.").StringVar(&c.attachmentID)

	c.Cmd.Flag("config", "YAML configuration file, flags override its values. Default: config.yaml in the data directory if present.").Short('c').StringVar(&c.configFile)
	c.llm.register(c.Cmd)
	c.Cmd.Flag("timeout", "Maximum duration of the plan generation.").DurationVar(&c.timeout)
	c.Cmd.Flag("save", "Store the generated plan.").BoolVar(&c.save)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatJSON).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c GenerateCommand) Name() string { return c.Cmd.FullCommand() }

func (c GenerateCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	p, err := c.plan(ctx)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, c.configFile, c.rootCmd.DataDir)
	if err != nil {
		return err
	}
	c.llm.apply(&cfg.LLM)
	if c.timeout != 0 {
		cfg.Jobs.Timeout = c.timeout
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var repo storage.PlanRepository
	if c.save {
		sqliteRepo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: c.rootCmd.DBPath,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("could not create repository: %w", err)
		}
		defer sqliteRepo.Close()
		repo = sqliteRepo
	}

	gen, err := newGenerator(cfg.LLM, c.llm.fakeLatency, metrics.Noop, logger)
	if err != nil {
		return err
	}

	svc, err := generate.NewService(generate.ServiceConfig{
		Generator:       gen,
		Repository:      repo,
		Timeout:         cfg.Jobs.Timeout,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// The job waits until we are attached so no status event is missed.
	attached := make(chan struct{})
	registry, err := jobs.NewRegistry(jobs.RegistryConfig{
		Runner: jobs.RunnerFunc(func(ctx context.Context, p model.Plan, sink generate.EventSink) model.Event {
			<-attached
			return svc.Run(ctx, p, sink)
		}),
		KeepaliveInterval: cfg.Jobs.KeepaliveInterval,
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("could not create job registry: %w", err)
	}

	id, err := registry.Submit(ctx, p)
	if err != nil {
		close(attached)
		return fmt.Errorf("could not submit plan: %w", err)
	}
	sub, err := registry.Attach(id)
	close(attached)
	if err != nil {
		return fmt.Errorf("could not attach to job: %w", err)
	}
	defer sub.Close()

	for {
		item, err := sub.Next(ctx)
		if err == io.EOF {
			return fmt.Errorf("job %s ended without result", id)
		}
		if err != nil {
			return err
		}
		if item.Keepalive {
			continue
		}

		e := item.Event
		switch e.Type {
		case model.EventTypeStatus:
			fmt.Fprintf(c.rootCmd.Stderr, "==> %s\n", e.Message)
		case model.EventTypeError:
			return fmt.Errorf("plan generation failed: %s", e.Message)
		case model.EventTypeCompleted:
			if err := newPrinter(c.format, c.rootCmd.Stdout).PrintPlan(*e.Plan); err != nil {
				return fmt.Errorf("could not print plan: %w", err)
			}
			return nil
		}
	}
}

// plan returns the plan to generate from the goal file or the goal flags.
func (c GenerateCommand) plan(ctx context.Context) (model.Plan, error) {
	if c.goalFile != "" {
		path, err := absFSPath(c.goalFile)
		if err != nil {
			return model.Plan{}, err
		}
		p, err := storageio.NewGoalYAMLRepository(os.DirFS("/")).GetPlan(ctx, path)
		if err != nil {
			return model.Plan{}, fmt.Errorf("could not load goal file: %w", err)
		}
		return p, nil
	}

	p := model.Plan{
		UserID: c.userID,
		GoalID: c.goalID,
		GoalContent: model.GoalContent{
			Duration:         c.duration,
			CurrentSituation: c.situation,
			Task:             c.task,
		},
		Tasks: []model.Task{},
	}
	if p.UserID == "" {
		p.UserID = uuid.NewString()
	}
	if p.GoalID == "" {
		p.GoalID = uuid.NewString()
	}
	if c.attachmentID != "" {
		id := c.attachmentID
		p.GoalContent.AttachmentID = &id
	}

	if err := p.Validate(); err != nil {
		return model.Plan{}, fmt.Errorf("invalid goal: %w", err)
	}

	return p, nil
}
