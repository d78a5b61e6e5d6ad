// Package cmd wires the command-line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/gitify-app/gitify-sub003/config"
)

// New creates the root command with all subcommands registered.
func New() *cobra.Command {
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:   "gitify",
		Short: "GitHub notifications in your terminal",
		Long: `Polls the notification inboxes of all your GitHub accounts, enriches
each notification with the state of its issue, pull request or discussion,
and lets you read, complete and unsubscribe threads without leaving the
terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts)
		},
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Config file path (default: OS config dir)")
	rootCmd.PersistentFlags().CountVarP(&opts.Verbosity, "verbose", "v", "Increase verbosity (-v info, -vv debug, -vvv trace)")
	addRunFlags(rootCmd, opts)

	rootCmd.AddCommand(NewCmdRun(opts))
	rootCmd.AddCommand(NewCmdLogin(opts))
	rootCmd.AddCommand(NewCmdLogout(opts))
	rootCmd.AddCommand(NewCmdAccounts(opts))
	rootCmd.AddCommand(NewCmdVersion())

	return rootCmd
}

// loadConfig loads the config from the override path or the default location.
func loadConfig(opts *Options) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.LoadFrom(opts.ConfigPath)
	}
	return config.Load()
}
