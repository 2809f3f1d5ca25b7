package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/shopdesk/internal/visit"
)

func newAlertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Show visits that need attention",
		Long:  "List open visits that are overdue, about to be due, or missing an expected leave time.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			alerts, err := newAPIClient().Alerts()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(out, alerts)
			}
			printAlerts(out, alerts)
			return nil
		},
	}
}

func newEstimateCmd() *cobra.Command {
	var service, arrived string

	cmd := &cobra.Command{
		Use:   "estimate <type>",
		Short: "Preview the expected leave time for a visit",
		Long: `Show how long a visit of the given type and service is expected to take.

Examples:
  shopdesk estimate Service --service "Engine Repair"
  shopdesk estimate Sales --arrived "2024-01-01 09:00"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			visitType, err := visit.ParseVisitType(args[0])
			if err != nil {
				return err
			}

			e, err := newAPIClient().Estimate(string(visitType), service, arrived)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(out, e)
			}
			label := e.VisitType.Label()
			if e.Service != "" && e.VisitType == visit.Service {
				label += ", " + e.Service
			}
			fmt.Fprintf(out, "%s: %d min, expected to leave at %s\n", label, e.Minutes, formatStamp(e.ExpectedLeaveAt))
			return nil
		},
	}

	cmd.Flags().StringVarP(&service, "service", "s", "", "service name")
	cmd.Flags().StringVar(&arrived, "arrived", "", "arrival time (default: now)")

	return cmd
}
