package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is stamped by the release build:
//
//	go build -ldflags "-X github.com/evcraddock/visitor-kiosk/internal/cli.Version=v1.2.0"
var Version = "dev"

type versionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Store     string `json:"store"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kiosk version and local store backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion()
		},
	}
}

func runVersion() error {
	info := versionInfo{Version: Version, GoVersion: runtime.Version(), Store: getStoreKind()}
	if isJSON() {
		return printJSON(info)
	}
	fmt.Printf("kiosk %s (%s, %s store)\n", info.Version, info.GoVersion, info.Store)
	return nil
}
