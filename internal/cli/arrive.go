package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/shopdesk/internal/client"
	"github.com/evcraddock/shopdesk/internal/visit"
)

type arriveOptions struct {
	service    string
	customerID string
	arrived    string
	expected   string
	location   string
	notes      string
	item       string
	quantity   int
	amount     float64
}

func newArriveCmd() *cobra.Command {
	var opts arriveOptions

	cmd := &cobra.Command{
		Use:   "arrive <customer-name> <type>",
		Short: "Record a customer arriving",
		Long: `Record a customer arriving at the shop.

Visit types: Ask, Service, Sales
Without --expected the leave time is estimated from the type and service.
Times accept RFC 3339 or "YYYY-MM-DD HH:MM" (UTC).

Examples:
  shopdesk arrive "Dana Smith" Service --service "Brake Service"
  shopdesk arrive Lee Sales --item "Winter tire" --quantity 4 --amount 520
  shopdesk arrive Sam Ask --arrived "2024-01-01 09:00" --location "Front desk"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArrive(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.service, "service", "s", "", "service requested (sets the SLA for Service visits)")
	cmd.Flags().StringVar(&opts.customerID, "customer-id", "", "customer reference")
	cmd.Flags().StringVar(&opts.arrived, "arrived", "", "arrival time (default: now)")
	cmd.Flags().StringVar(&opts.expected, "expected", "", "expected leave time (default: estimated)")
	cmd.Flags().StringVar(&opts.location, "location", "", "where the customer is waiting")
	cmd.Flags().StringVarP(&opts.notes, "notes", "n", "", "optional notes")
	cmd.Flags().StringVar(&opts.item, "item", "", "item sold (Sales visits)")
	cmd.Flags().IntVar(&opts.quantity, "quantity", 0, "quantity sold (Sales visits)")
	cmd.Flags().Float64Var(&opts.amount, "amount", 0, "sale amount (Sales visits)")

	return cmd
}

func runArrive(cmd *cobra.Command, args []string, opts arriveOptions) error {
	visitType, err := visit.ParseVisitType(args[1])
	if err != nil {
		return err
	}
	if opts.quantity < 0 || opts.amount < 0 {
		return errors.New("quantity and amount must not be negative")
	}

	req := client.AddVisitRequest{
		CustomerID:      opts.customerID,
		CustomerName:    args[0],
		VisitType:       string(visitType),
		Service:         opts.service,
		ArrivedAt:       opts.arrived,
		ExpectedLeaveAt: opts.expected,
		Location:        opts.location,
		Notes:           opts.notes,
	}
	if opts.item != "" || opts.quantity > 0 || opts.amount > 0 {
		req.SalesDetails = &visit.SalesDetails{
			Item:     opts.item,
			Quantity: opts.quantity,
			Amount:   opts.amount,
		}
	}

	v, err := newAPIClient().AddVisit(req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, v)
	}

	fmt.Fprintf(out, "Arrival recorded: %s (%s)\n", v.CustomerName, v.VisitType.Label())
	printVisit(out, v)
	return nil
}
