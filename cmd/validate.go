package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/redatlas/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the spreadsheets without loading them",
	Long: `Parse both spreadsheets and report every problem ingestion would hit.

This command checks:
- Required columns in both sheets
- Coordinates that are not "latitude,longitude" pairs of numbers
- Frequencies that are not numbers
- Loci declared more than once
- Coordinate rows naming loci the locus sheet does not define

Nothing is written to the store.

Examples:
  redatlas validate                   # Validate the configured sources
  redatlas validate --format json     # Output results as JSON
`,
	Run: func(cmd *cobra.Command, args []string) {
		res := validator.ValidateInputs(cfg.Sources)
		if err := outputResult(res, validateFormat, "Spreadsheets"); err != nil {
			fmt.Printf("❌ Validation output failed: %v\n", err)
			os.Exit(1)
		}
		if !res.Valid {
			os.Exit(1)
		}
	},
}

var validateFormat string

func init() {
	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", "text", "Output format (text, json)")
}

func outputResult(result *validator.Result, format, subject string) error {
	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	if result.Valid {
		color.Green("✅ %s validation passed!", subject)
	} else {
		color.Red("❌ %s validation failed!", subject)
	}

	printFindings("🔴 Errors", result.Errors)
	printFindings("🟡 Warnings", result.Warnings)
	printFindings("🔵 Info", result.Info)

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("  • Errors: %d\n", len(result.Errors))
	fmt.Printf("  • Warnings: %d\n", len(result.Warnings))
	fmt.Printf("  • Info: %d\n", len(result.Info))
	return nil
}

func printFindings(title string, findings []validator.Finding) {
	if len(findings) == 0 {
		return
	}
	fmt.Printf("\n%s (%d):\n", title, len(findings))
	for i, f := range findings {
		fmt.Printf("  %d. ", i+1)
		if f.Table != "" {
			fmt.Printf("[%s]", f.Table)
		}
		if f.Row > 0 {
			fmt.Printf(" row %d", f.Row)
		}
		if f.Column != "" {
			fmt.Printf(" (%s)", f.Column)
		}
		fmt.Printf(": %s\n", f.Message)
	}
}
