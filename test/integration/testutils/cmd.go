package testutils

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

var multiSpaceRegex = regexp.MustCompile(" +")

// RunPlanner executes a planner command with the given arguments string (split by spaces).
// Use RunPlannerArgs when arguments contain spaces that should be preserved.
func RunPlanner(ctx context.Context, env []string, binary, cmdArgs string, nolog bool) (stdout, stderr []byte, err error) {
	// Sanitize command.
	cmdArgs = strings.TrimSpace(cmdArgs)
	cmdArgs = multiSpaceRegex.ReplaceAllString(cmdArgs, " ")

	// Split into args.
	var args []string
	if cmdArgs != "" {
		args = strings.Split(cmdArgs, " ")
	}

	return RunPlannerArgs(ctx, env, binary, args, nolog)
}

// RunPlannerArgs executes a planner command with pre-split arguments.
func RunPlannerArgs(ctx context.Context, env []string, binary string, args []string, nolog bool) (stdout, stderr []byte, err error) {
	var outData, errData bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &outData
	cmd.Stderr = &errData
	cmd.Env = commandEnv(env, nolog)

	err = cmd.Run()

	return outData.Bytes(), errData.Bytes(), err
}

// StartPlanner starts a long running planner command (e.g. serve), it's stopped
// when the context ends.
func StartPlanner(ctx context.Context, env []string, binary string, args []string, nolog bool) (*exec.Cmd, *bytes.Buffer, error) {
	var errData bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = &errData
	cmd.Env = commandEnv(env, nolog)

	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	return cmd, &errData, nil
}

func commandEnv(env []string, nolog bool) []string {
	// Set env: os.Environ() first, then custom env overrides on top.
	// In Go's exec.Cmd, when duplicate keys exist, the last one wins.
	newEnv := append([]string{}, os.Environ()...)
	newEnv = append(newEnv, env...)
	if nolog {
		newEnv = append(newEnv, "PLANNER_NO_LOG=true")
	}
	return newEnv
}
