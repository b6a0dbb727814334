// File: cmd/app/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

type rootFlags struct {
	configPath string
	dev        bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "channel-bot",
		Short:         "Paid access gatekeeper for Telegram channels",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "config.yaml", "path to YAML config file")
	root.PersistentFlags().BoolVar(&flags.dev, "dev", false, "developer mode (console logs)")

	root.AddCommand(newServeCmd(flags), newMigrateCmd(flags))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
