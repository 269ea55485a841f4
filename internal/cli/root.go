package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Makepad-fr/cities/internal/api"
	"github.com/Makepad-fr/cities/internal/auth"
	"github.com/Makepad-fr/cities/internal/config"
	"github.com/Makepad-fr/cities/internal/form"
	"github.com/Makepad-fr/cities/internal/logging"
	"github.com/Makepad-fr/cities/internal/reconcile"
	"github.com/Makepad-fr/cities/internal/store/liststore"
	"github.com/Makepad-fr/cities/internal/ui"
)

// Options tune behavior from root flags.
type Options struct {
	ConfigPath string
	APIURL     string
	Theme      string
	Verbose    bool
}

// exitError carries the process exit code: 1 for runtime failures, 2 for
// usage errors.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &exitError{code: 2, err: fmt.Errorf(format, args...)}
}

func runtimeError(err error) error {
	return &exitError{code: 1, err: err}
}

// app is the state shared by every subcommand once the root pre-run is done.
type app struct {
	opt    Options
	cfg    config.Config
	log    *zap.Logger
	engine *reconcile.Engine
	in     io.Reader
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args, os.Stdin)
}

func run(ctx context.Context, args []string, stdin io.Reader) int {
	a := &app{in: stdin}
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		ui.Fail(ee.Error())
		return ee.code
	}
	ui.Fail(err.Error())
	return 1
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cities",
		Short: "cities - list, add, edit and delete cities on the city API",
		Long: `cities talks to the city HTTP API (GET/POST /api/city, PUT/DELETE /api/city/{id}).

Run without arguments to open the interactive list.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(needsAPI(cmd))
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.list(cmd.Context(), false)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.opt.ConfigPath, "config", "", "config file (default ~/.cities/config.toml)")
	pf.StringVar(&a.opt.APIURL, "api", "", "API base URL (overrides config and "+config.BaseURLEnv+")")
	pf.StringVar(&a.opt.Theme, "theme", "", "color theme: classic, neon or mono")
	pf.BoolVarP(&a.opt.Verbose, "verbose", "v", false, "debug logging (needs log_file)")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	root.AddCommand(
		newListCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newRemoveCmd(a),
		newAuthCmd(a),
	)
	return root
}

// usageArgs tags argument validation failures as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageErrorf("%v\nRun `%s --help` for usage", err, cmd.CommandPath())
		}
		return nil
	}
}

// offlineAnnotation marks commands that never talk to the API. It is inherited
// by subcommands.
const offlineAnnotation = "cities/offline"

func needsAPI(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[offlineAnnotation] == "true" {
			return false
		}
	}
	return true
}

func (a *app) setup(withAPI bool) error {
	cfg, err := config.Resolve(a.opt.ConfigPath)
	if err != nil {
		return usageErrorf("%v", err)
	}
	if a.opt.APIURL != "" {
		cfg.BaseURL = a.opt.APIURL
	}
	if a.opt.Theme != "" {
		cfg.Theme = a.opt.Theme
	}
	a.cfg = cfg
	ui.SetTheme(cfg.Theme)

	logger, err := logging.New(cfg.LogFile, cfg.LogLevel, a.opt.Verbose)
	if err != nil {
		return runtimeError(err)
	}
	a.log = logger
	if !withAPI {
		return nil
	}

	var opts []api.Option
	ti, err := auth.GetToken()
	if err != nil {
		a.log.Warn("ignoring unreadable credentials", zap.Error(err))
	} else if ti != nil {
		opts = append(opts, api.WithToken(ti.Token))
	}
	client, err := api.New(cfg.BaseURL, opts...)
	if err != nil {
		return usageErrorf("%v", err)
	}
	a.log.Debug("client ready", zap.String("base_url", client.BaseURL()), zap.Bool("token", len(opts) > 0))

	a.engine = reconcile.New(liststore.New(), form.New(), client, a.log)
	return nil
}
