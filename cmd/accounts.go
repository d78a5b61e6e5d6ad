package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gitify-app/gitify-sub003/internal/auth"
	"github.com/gitify-app/gitify-sub003/internal/log"
)

// NewCmdAccounts creates the accounts command.
func NewCmdAccounts(opts *Options) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List registered accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize(opts.Verbosity, os.Stderr)

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			registry := auth.NewRegistry(cfg)

			if refresh {
				if err := registry.Refresh(context.Background()); err != nil {
					return err
				}
			}

			accounts := registry.Accounts()
			if len(accounts) == 0 {
				fmt.Println("No accounts configured. Run `gitify login` to add one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LOGIN\tHOST\tMETHOD\tSCOPES\tVERSION")
			for _, account := range accounts {
				scopes := color.GreenString("ok")
				if !account.HasRequiredScopes {
					scopes = color.RedString("missing")
				}
				version := account.ServerVersion
				if !account.IsEnterprise() {
					version = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					account.User.Login, account.Hostname, account.Method, scopes, version)
			}
			return w.Flush()
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Re-validate identity, scopes and server version first")

	return cmd
}
