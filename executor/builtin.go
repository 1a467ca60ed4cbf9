package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/logger"
)

// Tags of the built-in executors.
const (
	TagShell = "shell"
	TagNoop  = "noop"
	TagFail  = "fail"
)

// Noop succeeds without side effects. The optional "sleep" parameter
// delays the result, and "result" is returned verbatim.
type Noop struct{}

// Execute implements dag.Executor.
func (Noop) Execute(ctx context.Context, tag string, params map[string]any) (json.RawMessage, error) {
	if d, ok := durationParam(params, "sleep"); ok && d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r, ok := params["result"]; ok {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, dag.Permanent(fmt.Errorf("noop result: %w", err))
		}
		return data, nil
	}
	return json.RawMessage(fmt.Sprintf(`{"executor":%q}`, tag)), nil
}

// Fail always fails with params.message. With "permanent: true" the
// failure is not retried.
type Fail struct{}

// Execute implements dag.Executor.
func (Fail) Execute(_ context.Context, tag string, params map[string]any) (json.RawMessage, error) {
	msg, _ := params["message"].(string)
	if msg == "" {
		msg = "task configured to fail"
	}
	err := errors.New(msg)
	if p, _ := params["permanent"].(bool); p {
		return nil, dag.Permanent(err)
	}
	return nil, err
}

func durationParam(params map[string]any, key string) (time.Duration, bool) {
	switch v := params[key].(type) {
	case string:
		d, err := time.ParseDuration(v)
		return d, err == nil
	case time.Duration:
		return v, true
	default:
		return 0, false
	}
}

// Register binds the built-in executors to reg. The shell executor is only
// registered when enabled.
func Register(reg *dag.Registry, cfg Config, log *logger.Logger) {
	cfg.ApplyDefaults()
	reg.Register(TagNoop, Noop{})
	reg.Register(TagFail, Fail{})
	if cfg.Shell.Enabled {
		reg.Register(TagShell, NewShell(cfg.Shell, log))
	}
}

// NewRegistry returns a registry with the built-in executors.
func NewRegistry(cfg Config, log *logger.Logger) *dag.Registry {
	reg := dag.NewRegistry()
	Register(reg, cfg, log)
	return reg
}
