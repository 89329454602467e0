package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/redatlas/runner"
	"github.com/ridoystarlord/redatlas/schema"
)

var (
	historyLimit    int
	historyStatus   string
	historyMode     string
	historyDetailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show ingestion run history",
	Long: `Show recorded ingestion runs with timestamps, durations, row counts and
user information, newest first.

Examples:
  redatlas history                    # Show all runs
  redatlas history --limit 10         # Show the last 10 runs
  redatlas history --status failed    # Only failed runs
  redatlas history --detailed         # Show detailed information
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		db, err := openDB(ctx)
		if err != nil {
			fmt.Printf("❌ Error connecting to database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		history, err := runner.History(ctx, db, runner.HistoryFilter{
			Limit:  historyLimit,
			Status: historyStatus,
			Mode:   historyMode,
		})
		if err != nil {
			fmt.Printf("❌ Error getting ingest history: %v\n", err)
			os.Exit(1)
		}

		if len(history) == 0 {
			fmt.Println("📋 No ingestion history found")
			return
		}

		fmt.Println("📋 Ingestion History")
		fmt.Println(strings.Repeat("=", 60))
		if historyDetailed {
			showDetailedHistory(history)
		} else {
			showSummaryHistory(history)
		}
	},
}

func statusMark(status string) string {
	switch status {
	case schema.StatusSuccess:
		return color.New(color.FgGreen, color.Bold).Sprint("✅")
	case schema.StatusFailed:
		return color.New(color.FgRed, color.Bold).Sprint("❌")
	default:
		return color.New(color.FgYellow, color.Bold).Sprint("⚠️")
	}
}

func showDetailedHistory(history []schema.IngestRun) {
	red := color.New(color.FgRed, color.Bold)
	blue := color.New(color.FgBlue, color.Bold)
	cyan := color.New(color.FgCyan)

	for i, run := range history {
		fmt.Printf("\n%d. %s ", i+1, statusMark(run.Status))
		blue.Printf("Run #%d (%s)\n", run.ID, run.Mode)

		cyan.Printf("   📅 Started: %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
		if run.Duration > 0 {
			cyan.Printf("   ⏱️  Duration: %v\n", run.Duration)
		}
		if run.ExecutedBy != "" {
			cyan.Printf("   👤 User: %s\n", run.ExecutedBy)
		}
		cyan.Printf("   📊 Status: %s\n", run.Status)
		if run.Status != schema.StatusFailed {
			cyan.Printf("   📦 Rows: %d loci, %d diseases, %d regions\n", run.Loci, run.Diseases, run.Regions)
		}
		if run.Status == schema.StatusFailed && run.ErrorMessage != "" {
			red.Printf("   💥 Error: %s\n", run.ErrorMessage)
		}
		if len(run.Checksum) > 8 {
			cyan.Printf("   🔍 Checksum: %s\n", run.Checksum[:8]+"...")
		}
	}
}

func showSummaryHistory(history []schema.IngestRun) {
	fmt.Printf("%-4s %-8s %-8s %-22s %-12s %-10s %s\n", "ID", "Status", "Mode", "Rows (L/D/R)", "Duration", "User", "Date")
	fmt.Println(strings.Repeat("-", 90))

	for _, run := range history {
		duration := "N/A"
		if run.Duration > 0 {
			duration = run.Duration.Round(time.Millisecond).String()
		}
		user := run.ExecutedBy
		if user == "" {
			user = "N/A"
		}
		fmt.Printf("%-4d %-8s %-8s %-22s %-12s %-10s %s\n",
			run.ID,
			statusMark(run.Status),
			run.Mode,
			fmt.Sprintf("%d/%d/%d", run.Loci, run.Diseases, run.Regions),
			duration,
			user,
			run.StartedAt.Format("2006-01-02 15:04"),
		)
	}

	fmt.Println(strings.Repeat("-", 90))

	successCount := 0
	failedCount := 0
	totalDuration := time.Duration(0)
	for _, run := range history {
		switch run.Status {
		case schema.StatusSuccess:
			successCount++
		case schema.StatusFailed:
			failedCount++
		}
		totalDuration += run.Duration
	}

	fmt.Printf("📊 Summary: %d total, %d successful, %d failed\n",
		len(history), successCount, failedCount)
	if totalDuration > 0 {
		fmt.Printf("⏱️  Total execution time: %v\n", totalDuration)
	}
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 0, "Limit number of records to show (0 = all)")
	historyCmd.Flags().StringVarP(&historyStatus, "status", "s", "", "Filter by status (success, failed, skipped)")
	historyCmd.Flags().StringVarP(&historyMode, "mode", "m", "", "Filter by mode (replace, append)")
	historyCmd.Flags().BoolVarP(&historyDetailed, "detailed", "d", false, "Show detailed information")
}
