package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/redatlas/validator"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the loaded store for consistency",
	Long: `Check the current state of the loaded tables.

This command will:
- Verify database connectivity
- Check that every table exists
- Report diseases and regions whose key matches no locus
- Report locus names loaded more than once
- Report loci without any region

Examples:
  redatlas check                    # Check current state
  redatlas check --timeout 30s      # Set custom timeout
  redatlas check --format json      # Output results as JSON
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()

		db, err := openDB(ctx)
		if err != nil {
			fmt.Printf("❌ Store check failed: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		res, err := validator.NewStoreValidator(db).Check(ctx)
		if err != nil {
			fmt.Printf("❌ Store check failed: %v\n", err)
			os.Exit(1)
		}
		if err := outputResult(res, checkFormat, "Store"); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		if !res.Valid {
			os.Exit(1)
		}
	},
}

var (
	checkTimeout time.Duration
	checkFormat  string
)

func init() {
	checkCmd.Flags().DurationVarP(&checkTimeout, "timeout", "t", 10*time.Second, "Timeout for the store check")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text, json)")
}
