package executor_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/executor"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/resilience"
)

// --- RunCommand ---

func TestRunCommand_Echo(t *testing.T) {
	res, err := executor.RunCommand(context.Background(), executor.Command{
		Binary: "echo",
		Args:   []string{"hello", "world"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", res.ExitCode)
	}
	if out := strings.TrimSpace(string(res.Stdout)); out != "hello world" {
		t.Fatalf("expected 'hello world', got %q", out)
	}
}

func TestRunCommand_ExitCode(t *testing.T) {
	res, err := executor.RunCommand(context.Background(), executor.Command{
		Binary: "sh",
		Args:   []string{"-c", "echo oops >&2; exit 42"},
	})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if res.ExitCode != 42 {
		t.Fatalf("expected exit code 42, got %d", res.ExitCode)
	}
	if got := strings.TrimSpace(string(res.Stderr)); got != "oops" {
		t.Fatalf("expected 'oops' on stderr, got %q", got)
	}
}

func TestRunCommand_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res, err := executor.RunCommand(ctx, executor.Command{
		Binary:      "sleep",
		Args:        []string{"10"},
		GracePeriod: 500 * time.Millisecond,
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if res.Duration > 5*time.Second {
		t.Fatalf("process took too long to kill: %v", res.Duration)
	}
}

func TestRunCommand_EnvAndStdin(t *testing.T) {
	res, err := executor.RunCommand(context.Background(), executor.Command{
		Binary: "sh",
		Args:   []string{"-c", "printf '%s:' \"$DAGFLOW_TEST\"; cat"},
		Env:    []string{"DAGFLOW_TEST=v1"},
		Stdin:  strings.NewReader("from stdin"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(res.Stdout); got != "v1:from stdin" {
		t.Fatalf("stdout = %q", got)
	}
}

func TestRunCommand_EmptyBinary(t *testing.T) {
	if _, err := executor.RunCommand(context.Background(), executor.Command{}); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

// --- Shell ---

func newShell(cfg executor.ShellConfig) *executor.Shell {
	cfg.Enabled = true
	return executor.NewShell(cfg, logger.Nop())
}

func TestShell_Success(t *testing.T) {
	sh := newShell(executor.ShellConfig{})
	data, err := sh.Execute(context.Background(), "shell", map[string]any{
		"command": "sh",
		"args":    []any{"-c", "echo $GREETING"},
		"env":     map[string]any{"GREETING": "hi"},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	var res executor.ShellResult
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if res.ExitCode != 0 || res.Stdout != "hi\n" || res.Command != "sh" {
		t.Errorf("result = %+v", res)
	}
}

func TestShell_NonZeroExitIsRetryable(t *testing.T) {
	sh := newShell(executor.ShellConfig{})
	_, err := sh.Execute(context.Background(), "shell", map[string]any{
		"command": "sh",
		"args":    []any{"-c", "echo broken >&2; exit 3"},
	})
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeExecutorFailed {
		t.Fatalf("error = %v, want EXECUTOR_FAILED", err)
	}
	if resilience.IsPermanent(err) {
		t.Error("non-zero exit must be retryable")
	}
	if appErr.Details["exit_code"] != 3 || appErr.Details["stderr"] != "broken\n" {
		t.Errorf("details = %v", appErr.Details)
	}
}

func TestShell_PermanentFailures(t *testing.T) {
	tests := []struct {
		name   string
		cfg    executor.ShellConfig
		params map[string]any
	}{
		{"missing command", executor.ShellConfig{}, map[string]any{"args": []any{"x"}}},
		{"unknown param", executor.ShellConfig{}, map[string]any{"command": "true", "bogus": 1}},
		{"bad timeout", executor.ShellConfig{}, map[string]any{"command": "true", "timeout": "soon"}},
		{"not allowed", executor.ShellConfig{AllowedCommands: []string{"echo"}}, map[string]any{"command": "sh"}},
		{"not found", executor.ShellConfig{}, map[string]any{"command": "dagflow-no-such-binary"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newShell(tt.cfg).Execute(context.Background(), "shell", tt.params)
			if err == nil {
				t.Fatal("expected error")
			}
			if !resilience.IsPermanent(err) {
				t.Errorf("error %v is not permanent", err)
			}
		})
	}
}

func TestShell_Timeout(t *testing.T) {
	sh := newShell(executor.ShellConfig{GracePeriod: 100 * time.Millisecond})
	_, err := sh.Execute(context.Background(), "shell", map[string]any{
		"command": "sleep",
		"args":    []any{"10"},
		"timeout": "50ms",
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
}

func TestShell_TruncatesOutput(t *testing.T) {
	sh := newShell(executor.ShellConfig{MaxOutputBytes: 4})
	data, err := sh.Execute(context.Background(), "shell", map[string]any{
		"command": "echo",
		"args":    []any{"abcdefgh"},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	var res executor.ShellResult
	_ = json.Unmarshal(data, &res)
	if res.Stdout != "abcd" || !res.Truncated {
		t.Errorf("result = %+v", res)
	}
}

// --- builtins ---

func TestNoopAndFail(t *testing.T) {
	ctx := context.Background()
	data, err := executor.Noop{}.Execute(ctx, "noop", map[string]any{"result": map[string]any{"ok": true}})
	if err != nil || string(data) != `{"ok":true}` {
		t.Errorf("Noop = %s, %v", data, err)
	}
	data, err = executor.Noop{}.Execute(ctx, "noop", nil)
	if err != nil || string(data) != `{"executor":"noop"}` {
		t.Errorf("Noop default = %s, %v", data, err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := (executor.Noop{}).Execute(cctx, "noop", map[string]any{"sleep": "1h"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Noop sleep on cancelled ctx error = %v", err)
	}

	_, err = executor.Fail{}.Execute(ctx, "fail", map[string]any{"message": "boom"})
	if err == nil || err.Error() != "boom" || resilience.IsPermanent(err) {
		t.Errorf("Fail = %v", err)
	}
	_, err = executor.Fail{}.Execute(ctx, "fail", map[string]any{"permanent": true})
	if !resilience.IsPermanent(err) {
		t.Errorf("Fail permanent = %v", err)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := executor.NewRegistry(executor.Config{}, logger.Nop())
	if got := strings.Join(reg.List(), ","); got != "fail,noop" {
		t.Errorf("tags without shell = %s", got)
	}
	reg = executor.NewRegistry(executor.Config{Shell: executor.ShellConfig{Enabled: true}}, logger.Nop())
	if got := strings.Join(reg.List(), ","); got != "fail,noop,shell" {
		t.Errorf("tags with shell = %s", got)
	}
	_, err := reg.Execute(context.Background(), "docker", nil)
	if !apperrors.HasCode(err, apperrors.ErrCodeUnknownExecutor) {
		t.Errorf("unknown tag error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := executor.Config{}
	cfg.ApplyDefaults()
	if cfg.Shell.GracePeriod != executor.DefaultGracePeriod || cfg.Shell.MaxOutputBytes == 0 {
		t.Errorf("defaults = %+v", cfg.Shell)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	cfg.Shell.AllowedCommands = []string{"echo", ""}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty allowed command")
	}
}
