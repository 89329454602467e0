package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/redatlas/runner"
	"github.com/ridoystarlord/redatlas/schema"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent ingestion activity",
	Long: `Show the activity lines written by ingestion runs, newest first.

Examples:
  redatlas log                    # Show the last 50 entries
  redatlas log --limit 20         # Show the last 20 entries
  redatlas log --limit 0          # Show everything
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		db, err := openDB(ctx)
		if err != nil {
			fmt.Printf("❌ Error connecting to database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		logs, err := runner.Logs(ctx, db, logLimit)
		if err != nil {
			fmt.Printf("❌ Error getting ingest logs: %v\n", err)
			os.Exit(1)
		}

		if len(logs) == 0 {
			fmt.Println("📋 No ingest logs found")
			return
		}
		showIngestLogs(logs)
	},
}

func showIngestLogs(logs []schema.IngestLog) {
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	blue := color.New(color.FgBlue, color.Bold)
	cyan := color.New(color.FgCyan)

	fmt.Println("📋 Recent Ingestion Activities")
	fmt.Println(strings.Repeat("=", 60))

	for i, entry := range logs {
		fmt.Printf("\n%d. ", i+1)

		switch entry.Level {
		case schema.LevelInfo:
			blue.Print("ℹ️  ")
		case schema.LevelWarn:
			yellow.Print("⚠️  ")
		case schema.LevelError:
			red.Print("❌ ")
		case schema.LevelSuccess:
			green.Print("✅ ")
		default:
			fmt.Print("📝 ")
		}

		cyan.Printf("[%s] ", entry.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Print(entry.Message)
		if entry.RunID != nil {
			fmt.Printf(" (run #%d)", *entry.RunID)
		}
		if entry.User != "" {
			fmt.Printf(" (by %s)", entry.User)
		}
		fmt.Println()

		if entry.Details != "" {
			cyan.Printf("   📄 Details: %s\n", entry.Details)
		}
	}

	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("📊 Showing %d recent log entries\n", len(logs))
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "l", 50, "Limit number of log entries to show (0 = all)")
}
