package nativebuild

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"

	"github.com/contriboss/nativebuild/internal/ctxlog"
)

// Command is one external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string            // working directory, "" for the current one
	Env  map[string]string // added on top of the process environment
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes external processes and blocks until they exit.
//
// Run returns the combined output split into lines. A process that exits
// non-zero yields an error carrying its exit code (see mg.ExitStatus); a
// process that could not be started yields a plain error.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stream, when set, receives the output while the process runs.
	Stream io.Writer

	// Timeout bounds each process. Zero means no limit.
	Timeout time.Duration
}

// Run executes cmd and waits for it.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) ([]string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	ctxlog.FromContext(ctx).Debug("exec", "cmd", cmd.String(), "dir", cmd.Dir)

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = os.Environ()
	for key, value := range cmd.Env {
		c.Env = append(c.Env, fmt.Sprintf("%s=%s", key, value))
	}

	var buf bytes.Buffer
	var out io.Writer = &buf
	if r.Stream != nil {
		out = io.MultiWriter(&buf, r.Stream)
	}
	c.Stdout = out
	c.Stderr = out
	// Children that inherit the output pipe must not keep Run waiting.
	c.WaitDelay = time.Second

	err := c.Run()
	output := splitLines(buf.String())
	if err == nil {
		return output, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return output, fmt.Errorf(`running "%s" aborted: %w`, cmd, ctxErr)
	}

	if !sh.CmdRan(err) {
		return output, fmt.Errorf(`failed to run "%s": %w`, cmd, err)
	}

	code := sh.ExitStatus(err)
	return output, mg.Fatalf(code, `running "%s" failed with exit code %d`, cmd, code)
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\r\n")
	if s == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}
