package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quorumtrade/poolarb/internal/app"
	"github.com/quorumtrade/poolarb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the pooled arbitrage pipeline",
	Long: `Starts the pooled arbitrage system, which will:
1. Scan configured venues for cross-venue price discrepancies
2. Submit profitable opportunities to the validator quorum
3. Check approved trades against the risk gate
4. Execute the two-leg hedge and settle results into the pool ledger

Use --symbol to restrict the scan to one symbol for debugging.`,
	RunE: runPipeline,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("symbol", "s", "", "Scan only a single symbol (for debugging)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	// Best effort: a missing .env falls back to the process environment.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	singleSymbol, _ := cmd.Flags().GetString("symbol")

	opts := &app.Options{
		SingleSymbol: singleSymbol,
	}

	application, err := app.New(cfg, logger, opts)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
