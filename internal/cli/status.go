package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the server connection",
		Long:  "Tests the connection to the server and prints a summary of the floor.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout())
		},
	}
}

// runStatus reports reachability without failing, so it is safe to run
// against a server that is down.
func runStatus(out io.Writer) error {
	serverURL := getServerURL()
	fmt.Fprintf(out, "Server:  %s\n", serverURL)

	c := newAPIClient()
	if err := c.Health(); err != nil {
		fmt.Fprintf(out, "Status:  ✗ cannot reach server (%v)\n", err)
		return nil
	}

	snap, err := c.Dashboard()
	if err != nil {
		fmt.Fprintf(out, "Status:  ✗ unexpected response (%v)\n", err)
		return nil
	}

	fmt.Fprintln(out, "Status:  ✓ connected")
	fmt.Fprintf(out, "Visits:  %d total, %d active, %d overdue\n", len(snap.Visits), len(snap.Active), len(snap.Overdue))
	fmt.Fprintf(out, "Alerts:  %d\n", len(snap.Alerts))
	return nil
}
