package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/evcraddock/visitor-kiosk/internal/emergency"
	"github.com/evcraddock/visitor-kiosk/internal/notify"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

// printJSON marshals v as indented JSON and writes it to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printVisitorSummary prints a single visitor in text format.
func printVisitorSummary(v *visitor.Visitor) {
	fmt.Printf("Visitor %s\n", v.ID)
	fmt.Printf("  Name:     %s\n", v.Name)
	fmt.Printf("  Company:  %s\n", v.Company)
	fmt.Printf("  Email:    %s\n", v.Email)
	fmt.Printf("  Phone:    %s\n", v.Phone)
	fmt.Printf("  Host:     %s\n", v.HostName)
	if v.HostEmail != "" {
		fmt.Printf("  Host email: %s\n", v.HostEmail)
	}
	fmt.Printf("  Arrival:  %s %s\n", v.ArrivalDate, v.ArrivalTime)
	if v.Purpose != nil {
		fmt.Printf("  Purpose:  %s\n", *v.Purpose)
	}
	if v.CarRegistration != nil {
		fmt.Printf("  Car:      %s\n", *v.CarRegistration)
	}
	fmt.Printf("  Status:   %s\n", v.Status.Label())
	if v.BadgeNumber != nil {
		fmt.Printf("  Badge:    %s\n", *v.BadgeNumber)
	}
	if v.CheckInTime != nil {
		fmt.Printf("  In:       %s\n", formatTime(v.CheckInTime))
	}
	if v.CheckOutTime != nil {
		fmt.Printf("  Out:      %s\n", formatTime(v.CheckOutTime))
	}
}

// printVisitorTable prints a list of visitors as a formatted table.
func printVisitorTable(visitors []*visitor.Visitor) error {
	if len(visitors) == 0 {
		fmt.Println("No visitors found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tNAME\tCOMPANY\tHOST\tARRIVAL\tSTATUS\tBADGE"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--\t----\t-------\t----\t-------\t------\t-----"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, v := range visitors {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s %s\t%s\t%s\n",
			v.ID, truncate(v.Name, 30), truncate(v.Company, 24), truncate(v.HostName, 24),
			v.ArrivalDate, v.ArrivalTime, v.Status.Label(), valueOr(v.BadgeNumber, "-")); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Printf("\nTotal: %d visitors\n", len(visitors))
	return nil
}

// printSession prints an emergency session in text format.
func printSession(s *emergency.Session) {
	fmt.Printf("Emergency %s\n", s.ID)
	fmt.Printf("  Type:     %s\n", s.Type)
	fmt.Printf("  Severity: %s\n", s.Severity)
	fmt.Printf("  Status:   %s\n", s.Status)
	if s.Location != "" {
		fmt.Printf("  Location: %s\n", s.Location)
	}
	if s.EvacuationRequired {
		fmt.Println("  Evacuation required")
	}
	if s.Notes != "" {
		fmt.Printf("  Notes:    %s\n", s.Notes)
	}
	fmt.Printf("  Started:  %s\n", formatTime(&s.StartedAt))
	if s.ResolvedAt != nil {
		fmt.Printf("  Resolved: %s\n", formatTime(s.ResolvedAt))
	}
}

// printRollCall prints the visitors on site.
func printRollCall(call *emergency.RollCall) error {
	if call.Session != nil {
		fmt.Printf("Active emergency: %s (%s)\n\n", call.Session.Type, call.Session.Severity)
	}
	if len(call.Visitors) == 0 {
		fmt.Println("No visitors on site.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "BADGE\tNAME\tCOMPANY\tHOST\tPHONE\tSINCE"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, v := range call.Visitors {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			valueOr(v.BadgeNumber, "-"), v.Name, v.Company, v.HostName, v.Phone, formatTime(v.CheckInTime)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Printf("\nOn site: %d\n", len(call.Visitors))
	return nil
}

// printNotifications prints notification log entries, newest first.
func printNotifications(entries []*notify.Entry) {
	if len(entries) == 0 {
		fmt.Println("No notifications.")
		return
	}

	for _, e := range entries {
		recipient := e.Recipient
		if recipient == "" {
			recipient = "(no recipient)"
		}
		fmt.Printf("[%s] %s %s to %s\n  %s\n", formatTime(&e.CreatedAt), e.Kind, e.Status, recipient, e.Subject)
		if e.Error != "" {
			fmt.Printf("  error: %s\n", e.Error)
		}
	}
}

// formatTime renders t in local time, or "-" when unset.
func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// valueOr dereferences s, returning fallback for nil.
func valueOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
