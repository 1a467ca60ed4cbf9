package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/kbukum/dagflow/dag"
	apperrors "github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/validation"
)

// ShellParams are the task parameters understood by the shell executor.
type ShellParams struct {
	Command string            `mapstructure:"command" validate:"required"`
	Args    []string          `mapstructure:"args"`
	Dir     string            `mapstructure:"dir"`
	Env     map[string]string `mapstructure:"env"`
	Stdin   string            `mapstructure:"stdin"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

// ShellResult is the task result of a shell command.
type ShellResult struct {
	Command    string `json:"command"`
	ExitCode   int    `json:"exit_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMS int64  `json:"duration_ms"`
	Truncated  bool   `json:"truncated,omitempty"`
}

// Shell runs a local command per task.
type Shell struct {
	cfg ShellConfig
	log *logger.Logger
}

var _ dag.Executor = (*Shell)(nil)

// NewShell creates a shell executor.
func NewShell(cfg ShellConfig, log *logger.Logger) *Shell {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Shell{cfg: cfg, log: log.WithComponent("executor.shell")}
}

// Execute runs params.command with params.args. Bad parameters and
// disallowed commands fail permanently. A non-zero exit is a retryable
// failure; its result is kept in the error details.
func (s *Shell) Execute(ctx context.Context, tag string, params map[string]any) (json.RawMessage, error) {
	p, err := decodeShellParams(params)
	if err != nil {
		return nil, dag.Permanent(apperrors.Validation(err.Error()))
	}
	if len(s.cfg.AllowedCommands) > 0 && !slices.Contains(s.cfg.AllowedCommands, p.Command) {
		return nil, dag.Permanent(apperrors.Forbidden(fmt.Sprintf("command %q is not allowed", p.Command)))
	}

	timeout := s.cfg.Timeout
	if p.Timeout > 0 {
		timeout = p.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := Command{
		Binary:      p.Command,
		Args:        p.Args,
		Dir:         p.Dir,
		Env:         envList(p.Env),
		GracePeriod: s.cfg.GracePeriod,
	}
	if cmd.Dir == "" {
		cmd.Dir = s.cfg.Dir
	}
	if p.Stdin != "" {
		cmd.Stdin = strings.NewReader(p.Stdin)
	}

	log := s.log.WithContext(ctx)
	log.Debug("running command", logger.Fields(logger.FieldExecutor, tag, "command", p.Command, "args", p.Args))
	res, runErr := RunCommand(ctx, cmd)
	if errors.Is(runErr, exec.ErrNotFound) {
		return nil, dag.Permanent(apperrors.ExecutorFailed(tag, runErr))
	}

	out, truncated := s.result(p.Command, res)
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode shell result: %w", err)
	}
	if runErr != nil {
		if ctx.Err() != nil {
			// Surface the context error so cancellation and timeouts classify.
			return nil, fmt.Errorf("%w: %w", ctx.Err(), runErr)
		}
		log.Warn("command failed", logger.Fields(
			logger.FieldExecutor, tag,
			"command", p.Command,
			"exit_code", res.ExitCode,
			logger.FieldDuration, res.Duration.Milliseconds(),
		))
		return nil, apperrors.ExecutorFailed(tag, runErr).
			WithDetail("exit_code", res.ExitCode).
			WithDetail("stderr", out.Stderr)
	}
	if truncated {
		log.Debug("command output truncated", logger.Fields("command", p.Command, "limit", s.cfg.MaxOutputBytes))
	}
	return data, nil
}

func (s *Shell) result(command string, res *Result) (ShellResult, bool) {
	stdout, t1 := truncate(res.Stdout, s.cfg.MaxOutputBytes)
	stderr, t2 := truncate(res.Stderr, s.cfg.MaxOutputBytes)
	return ShellResult{
		Command:    command,
		ExitCode:   res.ExitCode,
		Stdout:     stdout,
		Stderr:     stderr,
		DurationMS: res.Duration.Milliseconds(),
		Truncated:  t1 || t2,
	}, t1 || t2
}

func decodeShellParams(params map[string]any) (ShellParams, error) {
	var p ShellParams
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return p, err
	}
	if err := dec.Decode(params); err != nil {
		return p, fmt.Errorf("shell params: %w", err)
	}
	if err := validation.Validate(p); err != nil {
		return p, fmt.Errorf("shell params: %w", err)
	}
	return p, nil
}

func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func truncate(b []byte, limit int) (string, bool) {
	if limit > 0 && len(b) > limit {
		return string(b[:limit]), true
	}
	return string(b), false
}
