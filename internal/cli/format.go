package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/evcraddock/shopdesk/internal/visit"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printVisit prints a single visit in text format.
func printVisit(w io.Writer, v *visit.Visit) {
	fmt.Fprintf(w, "Visit %s\n", v.ID)
	fmt.Fprintf(w, "  Customer: %s\n", v.CustomerName)
	if v.CustomerID != "" {
		fmt.Fprintf(w, "  ID:       %s\n", v.CustomerID)
	}
	fmt.Fprintf(w, "  Type:     %s\n", v.VisitType.Label())
	if v.Service != "" {
		fmt.Fprintf(w, "  Service:  %s\n", v.Service)
	}
	fmt.Fprintf(w, "  Status:   %s\n", v.Status)
	fmt.Fprintf(w, "  Arrived:  %s\n", formatStamp(v.ArrivedAt))
	if v.ExpectedLeaveAt != nil {
		fmt.Fprintf(w, "  Expected: %s\n", formatStamp(*v.ExpectedLeaveAt))
	}
	if v.LeftAt != nil {
		fmt.Fprintf(w, "  Left:     %s\n", formatStamp(*v.LeftAt))
	}
	if v.Location != "" {
		fmt.Fprintf(w, "  Location: %s\n", v.Location)
	}
	if s := v.SalesDetails; s != nil {
		fmt.Fprintf(w, "  Sale:     %s\n", formatSale(s))
	}
	if v.Notes != "" {
		fmt.Fprintf(w, "  Notes:    %s\n", v.Notes)
	}
}

// printVisitTable prints a list of visits as a formatted table.
func printVisitTable(out io.Writer, visits []visit.Visit) error {
	if len(visits) == 0 {
		fmt.Fprintln(out, "No visits found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tCUSTOMER\tTYPE\tSERVICE\tARRIVED\tEXPECTED\tSTATUS"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--\t--------\t----\t-------\t-------\t--------\t------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, v := range visits {
		service := "-"
		if v.Service != "" {
			service = truncate(v.Service, 24)
		}
		expected := "-"
		if v.ExpectedLeaveAt != nil {
			expected = formatClock(*v.ExpectedLeaveAt)
		}

		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID, truncate(v.CustomerName, 24), v.VisitType.Label(), service,
			formatClock(v.ArrivedAt), expected, v.Status); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Fprintf(out, "\nTotal: %d visits\n", len(visits))
	return nil
}

// printAlerts prints alerts one per line, most severe marker first.
func printAlerts(w io.Writer, alerts []visit.Alert) {
	if len(alerts) == 0 {
		fmt.Fprintln(w, "No alerts.")
		return
	}

	for _, a := range alerts {
		label := a.VisitType.Label()
		if a.Service != "" {
			label += ", " + a.Service
		}
		fmt.Fprintf(w, "%-9s %s (%s) %s\n", severityTag(a.Severity), a.CustomerName, label, a.Message)
	}
}

func severityTag(s visit.Severity) string {
	return "[" + strings.ToUpper(string(s)) + "]"
}

func formatSale(s *visit.SalesDetails) string {
	var parts []string
	if s.Quantity > 0 {
		parts = append(parts, fmt.Sprintf("%dx", s.Quantity))
	}
	if s.Item != "" {
		parts = append(parts, s.Item)
	}
	if s.Amount > 0 {
		parts = append(parts, fmt.Sprintf("$%.2f", s.Amount))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

// formatStamp renders t in local time with the date.
func formatStamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// formatClock renders t in local time as hours and minutes.
func formatClock(t time.Time) string {
	return t.Local().Format("15:04")
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
