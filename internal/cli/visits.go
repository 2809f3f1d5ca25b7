package cli

import (
	"github.com/spf13/cobra"

	"github.com/evcraddock/shopdesk/internal/client"
	"github.com/evcraddock/shopdesk/internal/visit"
)

func newVisitsCmd() *cobra.Command {
	var opts client.ListOptions

	cmd := &cobra.Command{
		Use:   "visits",
		Short: "List visits",
		Long: `List visits, newest first.

Examples:
  shopdesk visits
  shopdesk visits --status overdue
  shopdesk visits --type service --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVisits(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status (Active|Overdue|Completed)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "filter by visit type (Ask|Service|Sales)")

	return cmd
}

func runVisits(cmd *cobra.Command, opts client.ListOptions) error {
	// Validate locally so typos fail before a round trip.
	if opts.Status != "" {
		st, err := visit.ParseStatus(opts.Status)
		if err != nil {
			return err
		}
		opts.Status = string(st)
	}
	if opts.Type != "" {
		vt, err := visit.ParseVisitType(opts.Type)
		if err != nil {
			return err
		}
		opts.Type = string(vt)
	}

	visits, err := newAPIClient().ListVisits(opts)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), visits)
	}
	return printVisitTable(cmd.OutOrStdout(), visits)
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single visit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newAPIClient().GetVisit(args[0])
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), v)
			}
			printVisit(cmd.OutOrStdout(), v)
			return nil
		},
	}
}
