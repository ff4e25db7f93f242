// Command fleetctl is the player-side toolkit: lay out a fleet, commit to it,
// and check a commitment before revealing.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var scheme string

	root := &cobra.Command{
		Use:           "fleetctl",
		Short:         "Board and commitment tools for fleet-wars players",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&scheme, "scheme", "sha256", "commitment scheme (sha256 or mimc)")

	root.AddCommand(
		newBoardCmd(&scheme),
		newCommitCmd(&scheme),
		newVerifyCmd(&scheme),
		newDecodeCmd(),
	)
	return root
}
