package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visitor-kiosk/internal/qr"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

func newRegisterCmd() *cobra.Command {
	var (
		in    visitor.Input
		qrOut string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Pre-register a visitor",
		Long: `Pre-register a visitor and print the QR payload they scan on arrival.

Examples:
  kiosk register --name "Mary Jones" --company Acme --email mary@acme.com \
    --phone "+1 555 123 4567" --host "Jane Doe" --date 2026-03-02 --time 10:00
  kiosk register ... --qr-out mary.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), in, qrOut)
		},
	}

	addInputFlags(cmd, &in)
	cmd.Flags().StringVar(&qrOut, "qr-out", "", "write the QR code as a PNG to this file")

	return cmd
}

// addInputFlags binds the visitor registration fields to flags.
func addInputFlags(cmd *cobra.Command, in *visitor.Input) {
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "visitor's full name")
	f.StringVar(&in.Company, "company", "", "visitor's company")
	f.StringVar(&in.Email, "email", "", "visitor's email address")
	f.StringVar(&in.Phone, "phone", "", "visitor's phone number")
	f.StringVar(&in.HostName, "host", "", "name of the person being visited")
	f.StringVar(&in.HostEmail, "host-email", "", "host's email for arrival notifications")
	f.StringVar(&in.ArrivalDate, "date", "", "arrival date (YYYY-MM-DD)")
	f.StringVar(&in.ArrivalTime, "time", "", "arrival time (HH:MM)")
	f.StringVar(&in.Purpose, "purpose", "", "purpose of the visit")
	f.StringVar(&in.CarRegistration, "car", "", "car registration")
}

func runRegister(ctx context.Context, in visitor.Input, qrOut string) error {
	k, closeFn, err := openKiosk()
	if err != nil {
		return err
	}
	defer closeFn()

	reg, err := k.Register(ctx, in)
	if err != nil {
		return commandError(err)
	}

	if qrOut != "" {
		png, err := qr.PNG(reg.QRPayload, qr.DefaultSize)
		if err != nil {
			return err
		}
		if err := os.WriteFile(qrOut, png, 0o644); err != nil {
			return fmt.Errorf("writing QR code: %w", err)
		}
	}

	if isJSON() {
		return printJSON(reg)
	}

	fmt.Println("Visitor registered.")
	printVisitorSummary(reg.Visitor)
	fmt.Printf("  QR:       %s\n", reg.QRPayload)
	if qrOut != "" {
		fmt.Printf("QR code written to %s\n", qrOut)
	}
	return nil
}
