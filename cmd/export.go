package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/redatlas/table"
)

var (
	exportFilters []string
	exportText    string
	exportSearch  []string
	exportOutput  string
	exportFormat  string
)

var exportCmd = &cobra.Command{
	Use:   "export <table>",
	Short: "Export a filtered view of a configured table",
	Long: `Filter one of the configured tables the way the table view does and write
the surviving rows.

Values given for the same column are alternatives. Different columns must all
match. Search terms are comma separated and must all appear in one of the
searched columns.

Examples:
  redatlas export "Population Table"
  redatlas export "Population Table" --filter Locus=ATXN1 --filter Population=P1
  redatlas export "Summary Table" --q "atxn, eur" --search Locus,Superpopulation
  redatlas export "Population Table" --format csv -o population.csv
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := exportTable(args[0]); err != nil {
			fmt.Fprintln(os.Stderr, "❌ Export failed:", err)
			os.Exit(1)
		}
	},
}

func init() {
	exportCmd.Flags().StringArrayVar(&exportFilters, "filter", nil, "Column=Value selection (repeatable)")
	exportCmd.Flags().StringVarP(&exportText, "q", "q", "", "Comma separated search terms")
	exportCmd.Flags().StringSliceVarP(&exportSearch, "search", "s", nil, "Columns searched by --q (default: active filters)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "tsv", "Output format (tsv, csv, json)")
}

func parseFilters(pairs []string) (map[string][]string, error) {
	sel := make(map[string][]string)
	for _, p := range pairs {
		col, val, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(col) == "" {
			return nil, fmt.Errorf("invalid filter %q (want Column=Value)", p)
		}
		col = strings.TrimSpace(col)
		sel[col] = append(sel[col], strings.TrimSpace(val))
	}
	return sel, nil
}

func exportTable(name string) error {
	if table.ContentType(exportFormat) == "" {
		return fmt.Errorf("unknown format %q", exportFormat)
	}
	selections, err := parseFilters(exportFilters)
	if err != nil {
		return err
	}

	catalog := table.NewCatalog(cfg, logger)
	t, err := catalog.Load(context.Background(), name)
	if err != nil {
		return err
	}
	view := t.Filter(catalog.Filters(), table.Query{
		Selections:    selections,
		Text:          exportText,
		SearchColumns: exportSearch,
	})

	var out io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if err := view.Export(out, exportFormat); err != nil {
		return err
	}
	if exportOutput != "" {
		fmt.Printf("✅ Wrote %d of %d rows to %s\n", view.Len(), t.Len(), exportOutput)
	}
	return nil
}
