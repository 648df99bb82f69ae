package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/taskflow/engine/internal/app"
	"github.com/taskflow/engine/internal/core/domain"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <workflow-file>",
		Short: "Load and run a workflow file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noCache, _ := cmd.Flags().GetBool("no-cache")

			results, err := c.app.Run(cmd.Context(), args[0], app.RunOptions{NoCache: noCache})
			printResults(cmd.OutOrStdout(), results)
			return err
		},
	}
	cmd.Flags().BoolP("no-cache", "n", false, "Bypass the cache and force execution")
	return cmd
}

func printResults(w io.Writer, results map[string]domain.Result) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r := results[name]
		if r.Success {
			_, _ = fmt.Fprintf(w, "%s: %s (%s)\n", name, r.Status, r.ExecutionTime)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s: %s: %v\n", name, r.Status, r.Err)
	}
}
