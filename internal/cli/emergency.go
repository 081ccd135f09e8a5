package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visitor-kiosk/internal/emergency"
)

func newEmergencyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emergency",
		Short: "Manage emergencies and drills",
		Long:  "Start or resolve an emergency session and print the roll call of visitors on site.",
	}

	cmd.AddCommand(
		newEmergencyStartCmd(),
		newEmergencyResolveCmd(),
		newEmergencyStatusCmd(),
		newEmergencyRollCallCmd(),
	)

	return cmd
}

func newEmergencyStartCmd() *cobra.Command {
	var (
		in       emergency.StartInput
		typ      string
		severity string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start an emergency session",
		Long: `Start an emergency session. Only one session can be active at a time.

Types: fire, evacuation, drill, lockdown, other
Severities: low, medium, high, critical (default: high)

Examples:
  kiosk emergency start --type fire --location "Building A" --evacuate
  kiosk emergency start --type drill --severity low`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Type = emergency.Type(strings.ToLower(typ))
			in.Severity = emergency.Severity(strings.ToLower(severity))
			return runEmergencyStart(cmd.Context(), in)
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", "", "emergency type")
	cmd.Flags().StringVarP(&severity, "severity", "s", "", "severity")
	cmd.Flags().StringVar(&in.Location, "location", "", "where the emergency is")
	cmd.Flags().BoolVar(&in.EvacuationRequired, "evacuate", false, "evacuation is required")
	cmd.Flags().StringVarP(&in.Notes, "notes", "n", "", "optional notes")
	if err := cmd.MarkFlagRequired("type"); err != nil {
		panic(err)
	}

	return cmd
}

func runEmergencyStart(ctx context.Context, in emergency.StartInput) error {
	k, closeFn, err := openKiosk()
	if err != nil {
		return err
	}
	defer closeFn()

	sess, err := k.StartEmergency(ctx, in)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(sess)
	}

	fmt.Println("Emergency session started.")
	printSession(sess)
	return nil
}

func newEmergencyResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the active emergency session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmergencyResolve(cmd.Context())
		},
	}
}

func runEmergencyResolve(ctx context.Context) error {
	k, closeFn, err := openKiosk()
	if err != nil {
		return err
	}
	defer closeFn()

	sess, err := k.ResolveEmergency(ctx)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(sess)
	}

	fmt.Println("Emergency session resolved.")
	printSession(sess)
	return nil
}

func newEmergencyStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active emergency session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmergencyStatus(cmd.Context())
		},
	}
}

func runEmergencyStatus(ctx context.Context) error {
	k, closeFn, err := openKiosk()
	if err != nil {
		return err
	}
	defer closeFn()

	sess, err := k.ActiveEmergency(ctx)
	if isNoActiveSession(err) {
		if isJSON() {
			return printJSON(nil)
		}
		fmt.Println("No active emergency.")
		return nil
	}
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(sess)
	}
	printSession(sess)
	return nil
}

func newEmergencyRollCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollcall",
		Short: "List visitors currently on site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollCall(cmd.Context())
		},
	}
}

func runRollCall(ctx context.Context) error {
	k, closeFn, err := openKiosk()
	if err != nil {
		return err
	}
	defer closeFn()

	call, err := k.RollCall(ctx)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(call)
	}
	return printRollCall(call)
}
