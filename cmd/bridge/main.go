package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/industria/bridge/internal/app"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	flagConfig   string
	flagLogLevel string
	flagVerbose  bool
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bridge: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bridge",
		Short:         "Deliver CNC jobs from IndustrIA to local machine folders",
		Long:          "bridge polls the IndustrIA server for pending CNC jobs, writes each job file into the folder configured for its machine and acknowledges it. Polling only runs while the account license is active.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default $BRIDGE_CONFIG or ~/.config/industria-bridge/config.yaml)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override log level (trace, debug, info, warn, error)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "print log output of one-shot commands")

	root.AddCommand(
		newRunCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newLicenseCmd(),
		newDevicesCmd(),
		newUpdateCmd(),
		newConfigCmd(),
		newLogsCmd(),
		newHistoryCmd(),
	)
	return root
}

// withApp builds the application for a one-shot command and closes it after fn.
func withApp(fn func(a *app.App) error) error {
	a, err := app.Build(app.Options{
		ConfigPath: flagConfig,
		Version:    version,
		Mode:       app.ModeCommand,
		Quiet:      !flagVerbose,
		LogLevel:   flagLogLevel,
	})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}
