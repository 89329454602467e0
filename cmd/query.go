package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/redatlas/query"
)

var (
	queryRepids   []string
	queryDiseases []string
	queryText     string
	queryFormat   string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List the regions of loci or diseases",
	Long: `Run a region query against the store and print the matching observations.

Search terms are matched exactly against known locus names first and disease
names second. When any locus is selected the disease selection is ignored.

Examples:
  redatlas query --repid ATXN1                 # One locus
  redatlas query --disease "Huntington disease"
  redatlas query --q "ATXN1, HTT"              # Free text terms
  redatlas query --repid HTT --format json     # Full result as JSON
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		db, err := openDB(ctx)
		if err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}
		defer db.Close()

		engine := query.NewEngine(db, cfg.Colors, logger, nil)
		vocab, err := engine.Options(ctx)
		if err != nil {
			fmt.Println("❌ Error reading options:", err)
			os.Exit(1)
		}
		sel := query.ParseSelection(queryRepids, queryDiseases, queryText, vocab)

		res, err := engine.Regions(ctx, sel.Repids, sel.Diseases)
		if err != nil {
			fmt.Println("❌ Query failed:", err)
			os.Exit(1)
		}

		if queryFormat == "json" {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(res); err != nil {
				fmt.Println("❌", err)
				os.Exit(1)
			}
			return
		}
		showRegions(res)
	},
}

func init() {
	queryCmd.Flags().StringSliceVarP(&queryRepids, "repid", "r", nil, "Locus names (repeatable)")
	queryCmd.Flags().StringSliceVarP(&queryDiseases, "disease", "d", nil, "Disease names (repeatable)")
	queryCmd.Flags().StringVarP(&queryText, "q", "q", "", "Comma separated search terms")
	queryCmd.Flags().StringVarP(&queryFormat, "format", "f", "text", "Output format (text, json)")
}

func showRegions(res *query.Result) {
	switch res.Status {
	case query.StatusPrompt:
		color.Yellow("💡 %s", res.Message)
		return
	case query.StatusEmpty:
		color.Yellow("📋 %s", res.Message)
		return
	}

	w := tablewriter.NewWriter(os.Stdout)
	w.SetHeader([]string{"Repid", "Disease", "Latitude", "Longitude", "Frequency", "Color"})
	for _, m := range res.Markers {
		freq := "N/A"
		if m.Frequency != nil {
			freq = strconv.FormatFloat(*m.Frequency, 'f', -1, 64)
		}
		w.Append([]string{
			m.RepidName,
			m.DiseaseName,
			strconv.FormatFloat(m.Latitude, 'f', -1, 64),
			strconv.FormatFloat(m.Longitude, 'f', -1, 64),
			freq,
			m.Color,
		})
	}
	w.Render()

	blue := color.New(color.FgBlue, color.Bold)
	blue.Printf("\n🎨 Legend (%s)\n", res.Field)
	for _, e := range res.Legend {
		fmt.Printf("   %-12s %s\n", e.Color, e.Name)
	}
	if res.Center != nil {
		fmt.Printf("\n📍 Center: %.4f, %.4f (%d markers)\n", res.Center.Lat, res.Center.Lng, len(res.Markers))
	}
}
