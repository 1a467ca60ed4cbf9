// Command dagflowd runs the dagflow daemon: the HTTP API, the run
// supervisor, the scheduler and the configured signal transports.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/dagflow/daemon"
	"github.com/kbukum/dagflow/version"
)

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "dagflowd",
		Short:         "Run the dagflow daemon",
		Version:       version.Get().String(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return daemon.Serve(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"config file (default: ./config/config.yml, ./config.yml or /etc/dagflow/config.yml)")
	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "dagflowd:", err)
		os.Exit(1)
	}
}
