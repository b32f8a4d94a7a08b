package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "poolarb",
	Short: "Pooled cross-venue arbitrage system",
	Long: `Pooled cross-venue arbitrage system that scans venue quotes for
fee-inclusive price discrepancies, routes every candidate trade through a
role-weighted validator quorum and a risk gate, executes the two-leg hedge,
and distributes realized results across pool members with an insurance
reserve skim.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
