package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/remotefiles/internal/app"
	"github.com/JakeFAU/remotefiles/internal/source"
)

// newResolveCmd creates the 'resolve' subcommand, a dry run that shows the
// URL each source maps to and which token variable would be used.
func newResolveCmd() *cobra.Command {
	var showRules bool
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show translated URLs and token variables without fetching",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showRules {
				return writeRules(cmd.OutOrStdout())
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			planned, err := appInstance.Plan()
			if err != nil {
				return fmt.Errorf("plan: %w", err)
			}
			return app.WritePlan(cmd.OutOrStdout(), planned)
		},
	}
	cmd.Flags().BoolVar(&showRules, "rules", false, "list the URL rewrite rules instead of the configured files")
	return cmd
}

func writeRules(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tHOST")
	for _, r := range source.Rules() {
		fmt.Fprintf(tw, "%s\t%s\n", r.Name, r.Host)
	}
	return tw.Flush()
}
