// Package cmd defines and implements the CLI commands for the remotefiles executable.
package cmd

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

	"github.com/JakeFAU/remotefiles/internal/app"
	"github.com/JakeFAU/remotefiles/internal/retrieval"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
// This allows us to inject a fake app during tests.
type App interface {
	Close()
	GetLogger() *zap.Logger
	Run(ctx context.Context) error
	Plan() ([]retrieval.Planned, error)
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, opts app.Options) (App, error) {
	return app.New(ctx, opts)
}

type rootOptions struct {
	configPath string
	envFile    string
}

// newRootCmd builds the command tree. The returned closer releases whatever
// app the PersistentPreRunE hook created, and is safe to call when none was.
func newRootCmd(stdout io.Writer) (*cobra.Command, func()) {
	opts := &rootOptions{}
	var instance App

	cmd := &cobra.Command{
		Use:   "remotefiles",
		Short: "Fetch a list of remote files and write them to local paths",
		Long: `remotefiles reads a list of {source, localFilePath} entries from its
config file, fetches every source concurrently (rewriting hosting-site URLs to
their raw-content form and attaching per-host tokens from the environment),
and writes the files only once every fetch has succeeded.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,

		// Builds and injects the application before any subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), app.Options{
				ConfigPath: opts.configPath,
				EnvFile:    opts.envFile,
				Stdout:     stdout,
			})
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			instance = a
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},
		RunE: runFetchCommand,
	}
	cmd.SetOut(stdout)

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"config file (default is ./remotefiles.yaml or $HOME/.config/remotefiles/remotefiles.yaml)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file consulted for tokens")

	cmd.AddCommand(newFetchCmd(), newResolveCmd())

	closer := func() {
		if instance != nil {
			instance.Close()
			instance = nil
		}
	}
	return cmd, closer
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd, closeApp := newRootCmd(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	closeApp()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
