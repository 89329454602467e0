package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop every table, including the run history",
	Long: `Drop the repid, disease and region tables together with the ingestion
history and activity log. The next ingest starts from an empty store.

Examples:
  redatlas reset          # Ask before dropping
  redatlas reset --yes    # Drop without asking
`,
	Run: func(cmd *cobra.Command, args []string) {
		if !resetYes && !confirm(fmt.Sprintf("Drop all tables in %s store %q?", cfg.Database.Driver, cfg.Database.DSN)) {
			fmt.Println("🛑 Reset cancelled")
			return
		}

		ctx := context.Background()
		db, err := openDB(ctx)
		if err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.Reset(ctx); err != nil {
			fmt.Println("❌ Reset failed:", err)
			os.Exit(1)
		}
		color.Green("✅ All tables dropped")
	},
}

func confirm(prompt string) bool {
	color.New(color.FgYellow).Printf("⚠️  %s [y/N] ", prompt)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
}
