// Command dagflow validates and runs graph documents locally, and starts
// the daemon.
//
//	dagflow validate pipeline.yaml
//	dagflow run pipeline.yaml --approve-all
//	dagflow serve --config /etc/dagflow/config.yml
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbukum/dagflow/logger"
)

type globalOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "dagflow",
		Short:         "Run task graphs with human decision points",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(
		newValidateCmd(),
		newRunCmd(opts),
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}

// cliLogger writes to stderr so stdout stays parseable.
func (o *globalOptions) cliLogger(w io.Writer) *logger.Logger {
	cfg := &logger.Config{Level: "warn", Format: "console"}
	if o.verbose {
		cfg.Level = "debug"
	}
	return logger.NewWithWriter(cfg, "dagflow", w)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "dagflow:", err)
		os.Exit(1)
	}
}
