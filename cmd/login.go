package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gitify-app/gitify-sub003/internal/auth"
	"github.com/gitify-app/gitify-sub003/internal/browser"
	"github.com/gitify-app/gitify-sub003/internal/log"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

type loginOptions struct {
	Hostname     string
	Method       string
	Token        string
	ClientID     string
	ClientSecret string
}

// NewCmdLogin creates the login command.
func NewCmdLogin(opts *Options) *cobra.Command {
	loginOpts := &loginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Add a GitHub account",
		Long: `Authenticates against github.com or a GitHub Enterprise Server host and
registers the account for polling. Tokens are stored in the OS keyring, never
in the config file.

Methods:
  pat     Personal access token (default)
  device  GitHub device flow (github.com only)
  web     OAuth App web flow (bring your own client id and secret)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize(opts.Verbosity, os.Stderr)
			return runLogin(cmd.Context(), opts, loginOpts)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&loginOpts.Hostname, "hostname", model.GitHubHostname, "GitHub hostname")
	cmd.Flags().StringVar(&loginOpts.Method, "method", "pat", "Authentication method (pat, device, web)")
	cmd.Flags().StringVar(&loginOpts.Token, "token", "", "Personal access token (prompted when omitted)")
	cmd.Flags().StringVar(&loginOpts.ClientID, "client-id", "", "OAuth App client id (web method)")
	cmd.Flags().StringVar(&loginOpts.ClientSecret, "client-secret", "", "OAuth App client secret (web method)")

	return cmd
}

func runLogin(ctx context.Context, opts *Options, loginOpts *loginOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	registry := auth.NewRegistry(cfg)

	var token string
	var method model.AuthMethod

	switch strings.ToLower(loginOpts.Method) {
	case "pat":
		method = model.MethodPersonalAccessToken
		token, err = resolveToken(loginOpts)

	case "device":
		method = model.MethodGitHubApp
		if loginOpts.Hostname != model.GitHubHostname {
			return fmt.Errorf("device flow is only available for %s", model.GitHubHostname)
		}
		token, err = deviceLogin(ctx)

	case "web":
		method = model.MethodOAuthApp
		token, err = webLogin(ctx, loginOpts)

	default:
		return fmt.Errorf("unknown method %q: use pat, device, or web", loginOpts.Method)
	}
	if err != nil {
		return err
	}

	account, err := registry.Login(ctx, loginOpts.Hostname, method, token)
	if err != nil {
		return err
	}

	color.Green("Logged in as %s on %s (%s)", account.User.Login, account.Hostname, account.Method)
	if !account.HasRequiredScopes {
		color.Yellow("Warning: token is missing the notifications scope; fetches may fail")
	}
	return nil
}

// resolveToken takes the token from the flag or prompts for it.
func resolveToken(loginOpts *loginOptions) (string, error) {
	if loginOpts.Token != "" {
		return loginOpts.Token, nil
	}

	var token string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Hostname").
				Description("github.com or your Enterprise Server host").
				Value(&loginOpts.Hostname),
			huh.NewInput().
				Title("Personal access token").
				Description("Needs the notifications scope (classic: notifications or repo)").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("token is required")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func deviceLogin(ctx context.Context) (string, error) {
	session, err := auth.StartDeviceFlow(ctx)
	if err != nil {
		return "", err
	}

	fmt.Printf("First, copy your one-time code: %s\n", color.New(color.Bold).Sprint(session.UserCode))
	fmt.Printf("Then authorize this device at %s\n", session.VerificationURI)
	if err := browser.Open(session.VerificationURI); err != nil {
		log.Debug("failed to open browser", "error", err)
	}
	fmt.Println("Waiting for authorization...")

	return auth.PollDeviceFlow(ctx, session)
}

func webLogin(ctx context.Context, loginOpts *loginOptions) (string, error) {
	if loginOpts.ClientID == "" || loginOpts.ClientSecret == "" {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("OAuth App client id").
					Value(&loginOpts.ClientID),
				huh.NewInput().
					Title("OAuth App client secret").
					EchoMode(huh.EchoModePassword).
					Value(&loginOpts.ClientSecret),
			),
		)
		if err := form.Run(); err != nil {
			return "", err
		}
	}

	return auth.WebFlow(ctx, auth.WebFlowOptions{
		Hostname:     loginOpts.Hostname,
		ClientID:     strings.TrimSpace(loginOpts.ClientID),
		ClientSecret: strings.TrimSpace(loginOpts.ClientSecret),
		OpenURL: func(url string) {
			fmt.Printf("Authorize this application at %s\n", url)
			if err := browser.Open(url); err != nil {
				log.Debug("failed to open browser", "error", err)
			}
		},
	})
}
