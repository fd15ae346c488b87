// Package command runs Terraform CLI commands inside project directories.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single invocation.
const DefaultTimeout = 300 * time.Second

// waitDelay caps how long a killed command may hold its output pipes open
// through orphaned children such as provider plugins.
const waitDelay = 5 * time.Second

// Result is the outcome of a command. Output holds stdout on success and a
// "<dir> - <reason>" message on failure.
type Result struct {
	Success bool
	Output  string
}

// Options configures a Runner.
type Options struct {
	Timeout     time.Duration
	InitCommand string
	Profile     string
}

// Runner executes commands with a timeout and a single init-then-retry on
// failure.
type Runner struct {
	timeout time.Duration
	init    []string
	env     []string
	log     zerolog.Logger
}

// New creates a Runner.
func New(opts Options, log zerolog.Logger) *Runner {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	init := strings.Fields(opts.InitCommand)
	if len(init) == 0 {
		init = []string{"terraform", "init", "-input=false"}
	}

	env := os.Environ()
	if opts.Profile != "" {
		env = append(env, "AWS_PROFILE="+opts.Profile)
	}

	return &Runner{
		timeout: timeout,
		init:    init,
		env:     env,
		log:     log.With().Str("component", "command").Logger(),
	}
}

// Run splits command on whitespace and runs it in dir.
func (r *Runner) Run(ctx context.Context, dir, command string) Result {
	return r.RunArgs(ctx, dir, strings.Fields(command)...)
}

// RunArgs runs the pre-split command in dir.
func (r *Runner) RunArgs(ctx context.Context, dir string, args ...string) Result {
	if len(args) == 0 {
		return Result{Output: dir + " - empty command"}
	}

	out, err := r.exec(ctx, dir, args)
	if err != nil && !errors.Is(err, errTimeout) {
		r.log.Debug().Ctx(ctx).Str("dir", dir).Strs("args", args).Err(err).Msg("command failed, running init")
		if _, initErr := r.exec(ctx, dir, r.init); initErr == nil {
			out, err = r.exec(ctx, dir, args)
		}
	}

	// the retry may time out as well
	if errors.Is(err, errTimeout) {
		msg := fmt.Sprintf("%s - ran out of time after %s", dir, r.timeout)
		r.log.Error().Ctx(ctx).Str("dir", dir).Msg(msg)
		return Result{Output: msg}
	}

	if err != nil {
		msg := fmt.Sprintf("%s - %s", dir, failureReason(out, err))
		r.log.Error().Ctx(ctx).Str("dir", dir).Strs("args", args).Msg(msg)
		return Result{Output: msg}
	}

	return Result{Success: true, Output: out}
}

var errTimeout = errors.New("command timed out")

// exec returns stdout on success and stderr alongside the error on failure.
func (r *Runner) exec(ctx context.Context, dir string, args []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...) // #nosec G204 -- commands come from configuration
	cmd.Dir = dir
	cmd.Env = r.env
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errTimeout
		}
		return stderr.String(), err
	}

	return stdout.String(), nil
}

func failureReason(stderr string, err error) string {
	if s := strings.TrimSpace(stderr); s != "" {
		return s
	}
	return err.Error()
}
