package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/shopdesk/internal/visit"
)

func newExtendCmd() *cobra.Command {
	var (
		minutes int
		until   string
	)

	cmd := &cobra.Command{
		Use:   "extend <id>",
		Short: "Change a visit's expected leave time",
		Long: `Move a visit's expected leave time, either by a number of minutes
(relative to the current expected time) or to an absolute time.

Examples:
  shopdesk extend 0190a3c2-6f1e-7b4a-9d2e-5c8f1a2b3c4d --minutes 30
  shopdesk extend 0190a3c2-6f1e-7b4a-9d2e-5c8f1a2b3c4d --until "2024-01-01 15:00"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newAPIClient()

			var (
				v   *visit.Visit
				err error
			)
			if cmd.Flags().Changed("minutes") {
				v, err = c.ExtendVisit(args[0], minutes)
			} else {
				v, err = c.SetExpectedLeave(args[0], until)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(out, v)
			}
			fmt.Fprintf(out, "%s now expected to leave at %s\n", v.CustomerName, formatStamp(*v.ExpectedLeaveAt))
			return nil
		},
	}

	cmd.Flags().IntVar(&minutes, "minutes", 0, "minutes to add (negative to shorten)")
	cmd.Flags().StringVar(&until, "until", "", "new expected leave time")
	cmd.MarkFlagsMutuallyExclusive("minutes", "until")
	cmd.MarkFlagsOneRequired("minutes", "until")

	return cmd
}
