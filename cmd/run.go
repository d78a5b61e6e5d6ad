package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gitify-app/gitify-sub003/internal/auth"
	"github.com/gitify-app/gitify-sub003/internal/engine"
	"github.com/gitify-app/gitify-sub003/internal/log"
	"github.com/gitify-app/gitify-sub003/internal/notify"
	"github.com/gitify-app/gitify-sub003/internal/tray"
	"github.com/gitify-app/gitify-sub003/internal/tui"
)

// NewCmdRun creates the run command. The root command runs it by default.
func NewCmdRun(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll notifications and show the inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts)
		},
	}
	addRunFlags(cmd, opts)
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().Var(newTUIFlag(opts), "tui", "Enable/disable the inbox UI (default: auto-detect)")
}

func runRun(cmd *cobra.Command, opts *Options) error {
	useTUI := shouldUseTUI(opts)

	// Suppress logs during the inbox UI to avoid interleaving with the display.
	if useTUI {
		log.Initialize(opts.Verbosity, io.Discard)
	} else {
		log.Initialize(opts.Verbosity, os.Stderr)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	registry := auth.NewRegistry(cfg)
	if len(registry.Accounts()) == 0 {
		return fmt.Errorf("no accounts configured; run `gitify login` first")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(cfg, registry, notify.LogSink{}, &tray.LogUpdater{})

	if !useTUI {
		log.Info("polling started",
			"accounts", len(registry.Accounts()),
			"interval", cfg.Settings.FetchInterval,
		)
		if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}

	go eng.Run(ctx)
	return tui.Run(ctx, eng, cfg)
}
