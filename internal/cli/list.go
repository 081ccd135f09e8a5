package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

func newListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visitors",
		Long:  "List visitors, newest first, optionally filtered by status.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), visitor.Status(status))
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (pre-registered|checked-in|checked-out)")

	return cmd
}

func runList(ctx context.Context, status visitor.Status) error {
	k, closeFn, err := openKiosk()
	if err != nil {
		return err
	}
	defer closeFn()

	visitors, err := k.ListVisitors(ctx, status)
	if err != nil {
		return commandError(err)
	}

	if isJSON() {
		if visitors == nil {
			visitors = []*visitor.Visitor{}
		}
		return printJSON(visitors)
	}

	return printVisitorTable(visitors)
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show visitor details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), args[0])
		},
	}
}

func runShow(ctx context.Context, id string) error {
	k, closeFn, err := openKiosk()
	if err != nil {
		return err
	}
	defer closeFn()

	v, err := k.GetVisitor(ctx, id)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(v)
	}

	printVisitorSummary(v)
	return nil
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a visitor record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd.Context(), args[0])
		},
	}
}

func runDelete(ctx context.Context, id string) error {
	k, closeFn, err := openKiosk()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := k.DeleteVisitor(ctx, id); err != nil {
		return err
	}

	if isJSON() {
		return printJSON(map[string]string{"deleted": id})
	}
	fmt.Printf("Visitor %s deleted.\n", id)
	return nil
}

func newQRCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "qr <id>",
		Short: "Write a visitor's QR code as a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQR(cmd.Context(), args[0], out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG file")
	if err := cmd.MarkFlagRequired("out"); err != nil {
		panic(err)
	}

	return cmd
}

func runQR(ctx context.Context, id, out string) error {
	k, closeFn, err := openKiosk()
	if err != nil {
		return err
	}
	defer closeFn()

	png, err := k.VisitorQR(ctx, id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, png, 0o644); err != nil {
		return fmt.Errorf("writing QR code: %w", err)
	}

	if !isJSON() {
		fmt.Printf("QR code written to %s\n", out)
	}
	return nil
}
