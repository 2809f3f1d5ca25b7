// Package cli defines the cobra command tree for shopdesk.
package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/shopdesk/internal/client"
)

var (
	flagFormat string
	flagServer string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shopdesk",
		Short:         "Track customer visits and SLA alerts",
		Long:          "Track customers visiting the shop, estimate when they should leave, and flag visits that are running late. Run 'shopdesk serve' for the dashboard API; the other commands talk to it.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagServer, "server", "", "API server URL (default: $SHOPDESK_SERVER_URL, config file, or http://localhost:8080)")

	root.AddCommand(
		newServeCmd(),
		newArriveCmd(),
		newLeftCmd(),
		newExtendCmd(),
		newShowCmd(),
		newVisitsCmd(),
		newAlertsCmd(),
		newEstimateCmd(),
		newStatusCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

// newAPIClient creates an HTTP client for the shopdesk API.
func newAPIClient() *client.Client {
	return client.New(getServerURL())
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
