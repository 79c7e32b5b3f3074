package cmd

import (
	"github.com/spf13/cobra"
)

// newFetchCmd creates the 'fetch' subcommand. It is also what the root
// command runs when invoked without one.
func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch every configured file and write it locally",
		Long: `Fetches all configured sources concurrently. If any fetch fails the
command exits non-zero and writes nothing; otherwise every file is written,
creating parent directories as needed.`,
		Args: cobra.NoArgs,
		RunE: runFetchCommand,
	}
}

func runFetchCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	if err := appInstance.Run(cmd.Context()); err != nil {
		return err
	}
	appInstance.GetLogger().Info("fetch command finished")
	return nil
}
