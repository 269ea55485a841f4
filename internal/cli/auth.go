package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/cities/internal/auth"
	"github.com/Makepad-fr/cities/internal/ui"
)

func newAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "auth",
		Short:       "Manage the bearer token sent to the API",
		Annotations: map[string]string{offlineAnnotation: "true"},
		Args:        usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return usageErrorf("usage: cities auth <login|logout|status|whoami>")
		},
	}

	var token string
	login := &cobra.Command{
		Use:   "login",
		Short: "Store a token in ~/.cities/credentials.json",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.authLogin(token)
		},
	}
	login.Flags().StringVar(&token, "token", "", "token to store (prompted for when empty)")

	cmd.AddCommand(
		login,
		&cobra.Command{
			Use:   "logout",
			Short: "Delete the stored token",
			Args:  usageArgs(cobra.NoArgs),
			RunE:  func(cmd *cobra.Command, args []string) error { return a.authLogout() },
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show where the token comes from and when it expires",
			Args:  usageArgs(cobra.NoArgs),
			RunE:  func(cmd *cobra.Command, args []string) error { return a.authStatus() },
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Decode the token payload locally (JWT only, unverified)",
			Args:  usageArgs(cobra.NoArgs),
			RunE:  func(cmd *cobra.Command, args []string) error { return a.authWhoAmI() },
		},
	)
	return cmd
}

func (a *app) authLogin(token string) error {
	if strings.TrimSpace(token) == "" {
		var err error
		token, err = a.promptToken()
		if err != nil {
			return runtimeError(fmt.Errorf("read token: %w", err))
		}
	}
	if err := auth.SetToken(token, nil); err != nil {
		return runtimeError(fmt.Errorf("save token: %w", err))
	}
	ui.OK("logged in")
	return nil
}

// promptToken asks with a masked input on a terminal and reads a line
// otherwise.
func (a *app) promptToken() (string, error) {
	if f, ok := a.in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		var token string
		err := huh.NewInput().
			Title("Paste your token").
			EchoMode(huh.EchoModePassword).
			Value(&token).
			Run()
		return token, err
	}
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *app) authLogout() error {
	ti, _ := auth.GetToken()
	if ti != nil && ti.Source == "env" {
		ui.OK("token is provided by " + auth.TokenEnv + " env var (nothing to delete)")
		return nil
	}
	if err := auth.DeleteToken(); err != nil {
		return runtimeError(fmt.Errorf("logout: %w", err))
	}
	ui.OK("logged out")
	return nil
}

func (a *app) authStatus() error {
	ti, err := auth.GetToken()
	if err != nil {
		return runtimeError(err)
	}
	t := ui.Current()
	if ti == nil {
		ui.Println(t.Muted.Render("not logged in"))
		ui.Println("Run: cities auth login")
		return nil
	}
	ui.Println("source: " + ti.Source)
	switch {
	case ti.ExpiresAt == nil:
		ui.Println("expires: (unknown)")
	case ti.Expired(time.Now()):
		ui.Println("expires: " + t.Error.Render(ti.ExpiresAt.UTC().Format(time.RFC3339)+" (expired)"))
	default:
		ui.Println("expires: " + ti.ExpiresAt.UTC().Format(time.RFC3339))
	}
	ui.Println("env override: " + auth.TokenEnv)
	return nil
}

// whoami decodes a JWT locally (unsigned); opaque tokens print basic info.
func (a *app) authWhoAmI() error {
	ti, _ := auth.GetToken()
	if ti == nil {
		return usageErrorf("not logged in. Run: cities auth login")
	}
	if payload, ok := auth.JWTPayload(ti.Token); ok {
		ui.Println("JWT payload:")
		ui.Println(payload)
		return nil
	}
	ui.Println("Opaque token (cannot introspect locally).")
	ui.Println("source: " + ti.Source)
	return nil
}
