package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visitor-kiosk/internal/client"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

func newCheckInCmd() *cobra.Command {
	var payload string

	cmd := &cobra.Command{
		Use:   "checkin [id]",
		Short: "Check in a pre-registered visitor",
		Long: `Check in a visitor by ID or by the payload scanned from their QR code.
A badge number is assigned on check-in.

Use --payload - to read the payload from stdin, as a USB scanner types it.

Examples:
  kiosk checkin 01HV7Q3Z9K2M4N6P8R0S2T4V6X
  kiosk checkin --payload -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return runCheckIn(cmd.Context(), id, payload, os.Stdin)
		},
	}

	cmd.Flags().StringVarP(&payload, "payload", "p", "", "scanned QR payload (- reads a line from stdin)")

	return cmd
}

func runCheckIn(ctx context.Context, id, payload string, stdin io.Reader) error {
	if payload == "-" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading payload: %w", err)
		}
		payload = strings.TrimSpace(line)
	}
	if id == "" && payload == "" {
		return fmt.Errorf("provide a visitor ID or --payload")
	}

	k, closeFn, err := openKiosk()
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := k.CheckIn(ctx, client.CheckInRequest{Payload: payload, ID: id})
	if err != nil {
		return commandError(err)
	}

	if isJSON() {
		return printJSON(res)
	}

	v := res.Visitor
	if res.AlreadyDone {
		fmt.Printf("%s is already checked in (badge %s).\n", v.Name, valueOr(v.BadgeNumber, "-"))
		return nil
	}
	fmt.Printf("Welcome, %s! Badge: %s\n", v.Name, valueOr(v.BadgeNumber, "-"))
	fmt.Printf("  Host:     %s\n", v.HostName)
	return nil
}

func newWalkInCmd() *cobra.Command {
	var in visitor.Input

	cmd := &cobra.Command{
		Use:   "walkin",
		Short: "Register and check in a visitor who arrived unannounced",
		Long: `Register a visitor and check them in at once. Arrival date and time
default to now.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWalkIn(cmd.Context(), in)
		},
	}

	addInputFlags(cmd, &in)

	return cmd
}

func runWalkIn(ctx context.Context, in visitor.Input) error {
	k, closeFn, err := openKiosk()
	if err != nil {
		return err
	}
	defer closeFn()

	v, err := k.WalkIn(ctx, in)
	if err != nil {
		return commandError(err)
	}

	if isJSON() {
		return printJSON(v)
	}

	fmt.Printf("Welcome, %s! Badge: %s\n", v.Name, valueOr(v.BadgeNumber, "-"))
	printVisitorSummary(v)
	return nil
}

func newCheckOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <id>",
		Short: "Check out a visitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckOut(cmd.Context(), args[0])
		},
	}
}

func runCheckOut(ctx context.Context, id string) error {
	k, closeFn, err := openKiosk()
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := k.CheckOut(ctx, id)
	if err != nil {
		return commandError(err)
	}

	if isJSON() {
		return printJSON(res)
	}

	if res.AlreadyDone {
		fmt.Printf("%s already checked out at %s.\n", res.Visitor.Name, formatTime(res.Visitor.CheckOutTime))
		return nil
	}
	fmt.Printf("Goodbye, %s. Please return badge %s.\n", res.Visitor.Name, valueOr(res.Visitor.BadgeNumber, "-"))
	return nil
}
