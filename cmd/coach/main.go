// coach - terminal client for the BMI coaching dialogue
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coach",
		Short:         "BMI coaching chat in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// A missing .env is not an error.
			_ = godotenv.Load()
		},
	}
	root.AddCommand(newChatCmd(), newBMICmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
