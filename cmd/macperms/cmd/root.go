// Package cmd implements the macperms CLI commands.
//
// The root command loads the optional config file, sets up logging and the
// native bridge, and hands a Broker to the subcommands (status, request,
// folders, types, watch, tcc, version).
package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/go-drift/macperms/cmd/macperms/internal/config"
	"github.com/go-drift/macperms/pkg/bridge"
	"github.com/go-drift/macperms/pkg/errors"
	"github.com/go-drift/macperms/pkg/permissions"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// BrokerFactory builds the Broker used by a command invocation.
type BrokerFactory func(cfg *config.Resolved, logger *slog.Logger) *permissions.Broker

// Env is what the commands run against. Tests substitute the broker and
// capture output.
type Env struct {
	Out       io.Writer
	Err       io.Writer
	NewBroker BrokerFactory
	HomeDir   func() (string, error)
}

// DefaultEnv talks to the native privacy frameworks.
func DefaultEnv() *Env {
	return &Env{
		Out:       os.Stdout,
		Err:       os.Stderr,
		NewBroker: nativeBroker,
		HomeDir:   permissions.UserHomeDir,
	}
}

func nativeBroker(cfg *config.Resolved, logger *slog.Logger) *permissions.Broker {
	bridge.Install()
	return permissions.NewBroker(
		permissions.WithLogger(logger),
		permissions.WithRequestTimeout(cfg.RequestTimeout),
	)
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRootCommand(DefaultEnv()).Execute()
}

// session is the state shared by subcommands once the root has run.
type session struct {
	env     *Env
	cfg     *config.Resolved
	logger  *slog.Logger
	broker  *permissions.Broker
	jsonOut bool
}

func (s *session) printJSON(v any) error {
	enc := json.NewEncoder(s.env.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewRootCommand assembles the command tree against env.
func NewRootCommand(env *Env) *cobra.Command {
	s := &session{env: env}
	var (
		configPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "macperms",
		Short: "Query and request macOS privacy permissions",
		Long: `macperms reports the authorization status of every macOS privacy
subsystem in one vocabulary ("not determined", "denied", "authorized",
"restricted") and requests access through whichever mechanism the
subsystem supports: a system prompt, or the System Settings pane.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home, _ := env.HomeDir()
			cfg, err := config.Resolve(config.Path(configPath), home)
			if err != nil {
				return err
			}
			if verbose {
				cfg.Verbose = true
				cfg.LogLevel = "debug"
			}
			s.cfg = cfg
			s.logger = newLogger(env.Err, cfg.LogLevel)
			errors.SetHandler(&errors.LogHandler{Logger: s.logger, Verbose: cfg.Verbose})
			s.broker = env.NewBroker(cfg, s.logger)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if s.broker != nil {
				return s.broker.Close()
			}
			return nil
		},
	}
	root.SetOut(env.Out)
	root.SetErr(env.Err)

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $"+config.EnvPath+" or the user config dir)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging with stack traces")
	root.PersistentFlags().BoolVar(&s.jsonOut, "json", false, "print JSON")

	root.AddCommand(
		statusCmd(s),
		requestCmd(s),
		foldersCmd(s),
		typesCmd(s),
		watchCmd(s),
		tccCmd(s),
		versionCmd(s),
	)
	return root
}

// newLogger builds the stderr logger at level.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String("time", a.Value.Time().Format("15:04:05"))
			}
			return a
		},
	}))
}

// signalContext is canceled on interrupt so a pending request or watch ends
// cleanly.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
