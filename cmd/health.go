package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database connectivity",
	Long: `Check if the database is accessible and responsive.

Examples:
  redatlas health                    # Check the configured store
  redatlas health --timeout 10s      # Set custom timeout
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := checkDatabaseHealth(); err != nil {
			fmt.Printf("❌ Database health check failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✅ Database is healthy and accessible")
	},
}

var healthTimeout time.Duration

func init() {
	healthCmd.Flags().DurationVarP(&healthTimeout, "timeout", "t", 5*time.Second, "Timeout for health check")
}

func checkDatabaseHealth() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %v", err)
	}

	counts, err := db.Counts(ctx)
	if err != nil {
		return fmt.Errorf("failed to count rows: %v", err)
	}
	if len(counts) == 0 {
		fmt.Println("⚠️  Database is accessible but nothing has been loaded")
		fmt.Println("   Run 'redatlas ingest' to load the spreadsheets")
		return nil
	}
	for _, c := range counts {
		fmt.Printf("📊 %s: %d rows\n", c.Table, c.Rows)
	}
	return nil
}
