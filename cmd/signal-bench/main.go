// signal-bench drives a Signal under concurrent producers and reports what the
// listeners observed.
//
//	signal-bench run --listeners 8 --producers 4 --emits 1000 --break-every 10 --config ./configs
package main

import (
	"fmt"
	"os"

	"github.com/KOMKZ/go-yogan-signal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "signal-bench",
		Short:         "Load generator for the signal package",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	opts := DefaultOptions()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Emit ticks from concurrent producers and print the totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateAll(opts); err != nil {
				return fmt.Errorf("invalid options: %w", err)
			}

			ctx := cmd.Context()
			app, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Shutdown(ctx)

			sig := app.NewSignal()
			defer sig.Close()

			report, err := Run(ctx, sig, opts, app.Logger())
			if err != nil {
				return err
			}
			if err := app.Flush(ctx); err != nil {
				app.Logger().WarnCtx(ctx, "flush telemetry failed", zap.Error(err))
			}

			report.Print(cmd.OutOrStdout())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.Listeners, "listeners", opts.Listeners, "number of counting listeners")
	flags.IntVar(&opts.Producers, "producers", opts.Producers, "number of concurrent producers")
	flags.IntVar(&opts.Emits, "emits", opts.Emits, "ticks emitted by each producer")
	flags.IntVar(&opts.BreakEvery, "break-every", opts.BreakEvery, "register a listener that breaks every Nth tick (0 disables)")
	flags.StringVar(&opts.ConfigDir, "config", opts.ConfigDir, "configuration directory")
	flags.StringSliceVar(&opts.ConfigFiles, "config-file", nil, "extra config file applied over the directory (repeatable)")
	flags.StringVar(&opts.EnvPrefix, "env-prefix", opts.EnvPrefix, "environment variable prefix")
	return cmd
}
