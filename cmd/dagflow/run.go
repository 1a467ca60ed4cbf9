package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/decision"
	"github.com/kbukum/dagflow/executor"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/runstore"
	"github.com/kbukum/dagflow/supervisor"
)

type runOptions struct {
	*globalOptions
	approveAll  bool
	shell       bool
	json        bool
	maxParallel int
	timeout     time.Duration
	poll        time.Duration
}

func newRunCmd(g *globalOptions) *cobra.Command {
	o := &runOptions{globalOptions: g}
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Execute a graph document in this process",
		Long: `Run executes a graph document against an in-memory store and prints
its report. Confirmed and arbitrated tasks wait for a decision; with
--approve-all every pending decision is approved, and arbitrated tasks
receive an approving vote from each stakeholder.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context(), args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.BoolVar(&o.approveAll, "approve-all", false, "approve every pending decision")
	f.BoolVar(&o.shell, "shell", false, "enable the shell executor")
	f.BoolVar(&o.json, "json", false, "print the report as JSON")
	f.IntVar(&o.maxParallel, "max-parallel", 0, "concurrent executor calls (default 8)")
	f.DurationVar(&o.timeout, "timeout", 0, "cancel the run after this long")
	f.DurationVar(&o.poll, "poll", 100*time.Millisecond, "interval between pending decision checks")
	return cmd
}

func (o *runOptions) run(ctx context.Context, path string, stdout, stderr io.Writer) error {
	doc, err := dag.LoadDocument(path)
	if err != nil {
		return err
	}
	log := o.cliLogger(stderr)

	engineCfg := dag.EngineConfig{MaxParallel: o.maxParallel}
	engineCfg.ApplyDefaults()
	supCfg := supervisor.Config{}
	supCfg.ApplyDefaults()

	store := runstore.NewMemoryStore()
	execs := executor.NewRegistry(executor.Config{Shell: executor.ShellConfig{Enabled: o.shell}}, log)
	engine := dag.NewEngine(engineCfg, store, execs, dag.WithLogger(log))
	sup := supervisor.New(supCfg, engine, store, supervisor.WithLogger(log))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sup.Shutdown(shutdownCtx)
	}()

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	h, err := sup.SubmitDocument(ctx, doc)
	if err != nil {
		return err
	}
	decided := make(chan struct{})
	go func() {
		defer close(decided)
		o.decide(ctx, sup, h, stderr, log)
	}()

	rep, err := h.Wait(ctx)
	if ctx.Err() != nil {
		_ = sup.Cancel(context.Background(), h.ID(), "interrupted: "+ctx.Err().Error())
		rep, err = h.Wait(context.Background())
	}
	<-decided
	if err != nil {
		return err
	}

	if o.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		printReport(stdout, rep)
	}
	if rep.Status != dag.RunCompleted {
		return fmt.Errorf("run %s ended %s", rep.RunID, rep.Status)
	}
	return nil
}

// decide polls the pending decisions until the run ends. Each request is
// announced once; with --approve-all it is answered once as well.
func (o *runOptions) decide(ctx context.Context, sup *supervisor.Supervisor, h *supervisor.RunHandle, stderr io.Writer, log *logger.Logger) {
	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()
	announced := make(map[string]bool)
	answered := make(map[string]bool)
	for {
		select {
		case <-h.Done():
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, req := range h.Pending() {
			if !announced[req.TaskID] {
				announced[req.TaskID] = true
				fmt.Fprintf(stderr, "task %s waits for a decision (%s)\n", req.TaskID, req.Kind)
			}
			if o.approveAll && !answered[req.TaskID] {
				answered[req.TaskID] = true
				if err := approve(ctx, sup, req); err != nil {
					log.Warn("auto-approve failed", logger.Fields("task_id", req.TaskID, logger.FieldError, err.Error()))
				}
			}
		}
	}
}

func approve(ctx context.Context, sup *supervisor.Supervisor, req decision.Request) error {
	switch req.Kind {
	case decision.KindRecommended:
		// Proceeds with its default action when the countdown ends.
		return nil
	case decision.KindConfirmed:
		return sup.Approve(ctx, req.RunID, req.TaskID, "approved by dagflow run --approve-all")
	}
	voted := make(map[string]bool, len(req.Votes))
	for _, v := range req.Votes {
		voted[v.Stakeholder] = true
	}
	for _, s := range req.Stakeholders {
		if voted[s] {
			continue
		}
		if err := sup.Vote(ctx, req.RunID, req.TaskID, s, true); err != nil {
			return err
		}
	}
	return nil
}

func printReport(w io.Writer, rep dag.RunReport) {
	fmt.Fprintf(w, "run %s (%s): %s in %s\n", rep.RunID, rep.Graph, rep.Status, rep.Duration.Round(time.Millisecond))
	if rep.Reason != "" {
		fmt.Fprintf(w, "reason: %s\n", rep.Reason)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tEXECUTOR\tSTATUS\tATTEMPTS\tDETAIL")
	for _, t := range rep.Tasks {
		detail := ""
		if t.Failure != nil {
			detail = fmt.Sprintf("%s: %s", t.Failure.Kind, t.Failure.Message)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", t.TaskID, t.Executor, t.Status, t.Attempts, detail)
	}
	_ = tw.Flush()
}
