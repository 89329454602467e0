package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/redatlas/runner"
	"github.com/ridoystarlord/redatlas/schema"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show table sizes and the last ingestion run",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		db, err := openDB(ctx)
		if err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}
		defer db.Close()

		rep, err := runner.Status(ctx, db)
		if err != nil {
			fmt.Println("❌ Status error:", err)
			os.Exit(1)
		}

		if len(rep.Tables) == 0 {
			fmt.Println("🕒 Store is empty, run 'redatlas ingest'")
		} else {
			fmt.Println("✅ Tables:")
			for _, t := range rep.Tables {
				fmt.Printf("   - %-8s %d rows\n", t.Table, t.Rows)
			}
		}

		if rep.LastRun != nil {
			run := rep.LastRun
			fmt.Printf("\n📅 Last run: #%d %s (%s) at %s by %s\n",
				run.ID, run.Status, run.Mode, run.StartedAt.Format("2006-01-02 15:04:05"), run.ExecutedBy)
			if run.Status == schema.StatusFailed {
				fmt.Printf("   💥 %s\n", run.ErrorMessage)
			}
		}
		if rep.Failed > 0 {
			fmt.Printf("\n❌ Failed runs: %d (see 'redatlas history --status failed')\n", rep.Failed)
		}
	},
}
