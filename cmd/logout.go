package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gitify-app/gitify-sub003/internal/auth"
	"github.com/gitify-app/gitify-sub003/internal/log"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

// NewCmdLogout creates the logout command.
func NewCmdLogout(opts *Options) *cobra.Command {
	var all bool
	var hostname string

	cmd := &cobra.Command{
		Use:   "logout [login]",
		Short: "Remove an account and its stored token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize(opts.Verbosity, os.Stderr)

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			registry := auth.NewRegistry(cfg)
			accounts := registry.Accounts()
			if len(accounts) == 0 {
				return fmt.Errorf("no accounts configured")
			}

			if all {
				for _, account := range accounts {
					if err := registry.Remove(account.UUID()); err != nil {
						return err
					}
					color.Green("Removed %s@%s", account.User.Login, account.Hostname)
				}
				return nil
			}

			var login string
			if len(args) == 1 {
				login = args[0]
			}
			account, err := matchAccount(accounts, login, hostname)
			if err != nil {
				return err
			}
			if err := registry.Remove(account.UUID()); err != nil {
				return err
			}
			color.Green("Removed %s@%s", account.User.Login, account.Hostname)
			return nil
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every account")
	cmd.Flags().StringVar(&hostname, "hostname", "", "Disambiguate when the same login exists on multiple hosts")

	return cmd
}

// matchAccount resolves a login (and optional hostname) to a single account.
// With one registered account, an empty login matches it.
func matchAccount(accounts []model.Account, login, hostname string) (model.Account, error) {
	if login == "" {
		if len(accounts) == 1 {
			return accounts[0], nil
		}
		return model.Account{}, fmt.Errorf("multiple accounts configured; specify a login")
	}

	var matches []model.Account
	for _, account := range accounts {
		if account.User.Login != login {
			continue
		}
		if hostname != "" && account.Hostname != hostname {
			continue
		}
		matches = append(matches, account)
	}

	switch len(matches) {
	case 0:
		return model.Account{}, fmt.Errorf("no account matches login %q", login)
	case 1:
		return matches[0], nil
	default:
		return model.Account{}, fmt.Errorf("login %q exists on multiple hosts; use --hostname", login)
	}
}
