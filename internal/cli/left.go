package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLeftCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "left <id>",
		Short: "Record that a customer left",
		Long: `Close a visit. The leave time defaults to now.

Examples:
  shopdesk left 0190a3c2-6f1e-7b4a-9d2e-5c8f1a2b3c4d
  shopdesk left 0190a3c2-6f1e-7b4a-9d2e-5c8f1a2b3c4d --at "2024-01-01 10:45"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newAPIClient().MarkLeft(args[0], at)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(out, v)
			}
			fmt.Fprintf(out, "%s left at %s\n", v.CustomerName, formatStamp(*v.LeftAt))
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "leave time (default: now)")

	return cmd
}
