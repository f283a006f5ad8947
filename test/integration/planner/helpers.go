package planner

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/hte-labs/hte-planner/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "planner"
	}

	// go test changes the CWD to the test package directory, so relative
	// paths are not accepted.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("PLANNER_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("planner binary not found at %q: %w", c.Binary, err)
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "PLANNER_INTEGRATION"
		envBinary     = "PLANNER_INTEGRATION_BINARY"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary: os.Getenv(envBinary),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// RunPlannerCmd runs a planner command using a specific db path, logging is disabled.
func RunPlannerCmd(ctx context.Context, config Config, dbPath string, args ...string) (stdout, stderr []byte, err error) {
	args = append([]string{"--no-log", "--db-path", dbPath}, args...)
	return testutils.RunPlannerArgs(ctx, nil, config.Binary, args, true)
}

// RunGenerate generates a plan with the fake provider and stores it.
func RunGenerate(ctx context.Context, config Config, dbPath, userID, goalID, task string) (stdout, stderr []byte, err error) {
	return RunPlannerCmd(ctx, config, dbPath,
		"generate", "--llm", "fake", "--llm-fake-latency", "0s", "--save", "--format", "json",
		"--user-id", userID, "--goal-id", goalID,
		"--task", task, "--duration", "2 weeks", "--situation", "Beginner")
}

// RunGoalsList lists the stored goals of a user in JSON format.
func RunGoalsList(ctx context.Context, config Config, dbPath, userID string) (stdout, stderr []byte, err error) {
	return RunPlannerCmd(ctx, config, dbPath, "goals", "--format", "json", "list", userID)
}

// RunGoalsShow shows a stored goal in JSON format.
func RunGoalsShow(ctx context.Context, config Config, dbPath, goalID string) (stdout, stderr []byte, err error) {
	return RunPlannerCmd(ctx, config, dbPath, "goals", "--format", "json", "show", goalID)
}

// StartServe starts the API with the fake provider on a free local port and
// returns its address.
func StartServe(ctx context.Context, config Config, dbPath string) (addr string, cmd *exec.Cmd, err error) {
	addr, err = freeAddr()
	if err != nil {
		return "", nil, err
	}

	args := []string{
		"--no-log", "--db-path", dbPath,
		"serve", "--llm", "fake", "--llm-fake-latency", "200ms",
		"--listen-address", addr,
	}
	cmd, _, err = testutils.StartPlanner(ctx, nil, config.Binary, args, true)
	if err != nil {
		return "", nil, err
	}

	return addr, cmd, nil
}

func freeAddr() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("could not get a free port: %w", err)
	}
	defer l.Close()
	return l.Addr().String(), nil
}
