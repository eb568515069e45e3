// Command stmdemo exercises the stm engine from the command line: a bank
// transfer workload (CTL/ETL/write-through, configurable contention) and a
// clock-rollover scenario, both driven through Atomically/Run so the demo
// doubles as a manual stress rig.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "stmdemo",
		Short:   "Exercise the stm transactional memory engine",
		Version: version,
	}

	rootCmd.AddCommand(
		newBankCommand(),
		newRolloverCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
