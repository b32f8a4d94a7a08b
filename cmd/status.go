package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quorumtrade/poolarb/internal/pool"
	"github.com/quorumtrade/poolarb/internal/reserve"
	"github.com/quorumtrade/poolarb/internal/risk"
	"github.com/quorumtrade/poolarb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pool, risk, and reserve status of a running instance",
	Long: `Queries the HTTP API of a running poolarb instance and prints the
pool ledger, risk gate, and insurance reserve status.`,
	RunE: showStatus,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().String("host", "localhost", "Host of the running instance")
}

func showStatus(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	host, _ := cmd.Flags().GetString("host")
	base := fmt.Sprintf("http://%s:%s", host, cfg.HTTPPort)
	client := &http.Client{Timeout: 5 * time.Second}

	var poolStats pool.PoolStats
	if err := fetchJSON(client, base+"/api/pool", &poolStats); err != nil {
		return fmt.Errorf("fetch pool status: %w", err)
	}

	var riskStatus risk.Status
	if err := fetchJSON(client, base+"/api/risk", &riskStatus); err != nil {
		return fmt.Errorf("fetch risk status: %w", err)
	}

	var health reserve.HealthReport
	if err := fetchJSON(client, base+"/api/reserve", &health); err != nil {
		return fmt.Errorf("fetch reserve status: %w", err)
	}

	fmt.Printf("Pool %q\n", poolStats.Name)
	fmt.Printf("  members:      %d active / %d total\n", poolStats.ActiveMembers, poolStats.TotalMembers)
	fmt.Printf("  NAV:          %.2f (share price %.4f)\n", poolStats.NAV, poolStats.SharePrice)
	fmt.Printf("  ROI:          %.2f%%\n", poolStats.ROIPercentage)
	fmt.Println("Risk gate")
	fmt.Printf("  open trades:  %d\n", riskStatus.OpenTrades)
	fmt.Printf("  daily loss:   %.2f\n", riskStatus.DailyLoss)
	fmt.Printf("  halted:       %v\n", riskStatus.Halted)
	fmt.Println("Insurance reserve")
	fmt.Printf("  balance:      %.2f\n", health.Balance)
	fmt.Printf("  health ratio: %.4f\n", health.HealthRatio)
	fmt.Printf("  pending:      %d claims / %.2f\n", health.PendingClaims, health.PendingAmount)

	return nil
}

func fetchJSON(client *http.Client, url string, out interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
