package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ridoystarlord/redatlas/config"
)

var initPath string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.yaml",
	Long: `Write a config.yaml holding every setting with its default value.

The file points at repid.xlsx and coordinate_info.xlsx in the working
directory and stores the data in repid.db. Edit it, then run ingest.

Examples:
  redatlas init                      # Create ./config.yaml
  redatlas init --path conf/app.yaml # Create the file elsewhere
`,
	// init must work before any config exists
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := os.Stat(initPath); err == nil {
			fmt.Printf("❌ %s already exists!\n", initPath)
			os.Exit(1)
		}

		content, err := yaml.Marshal(config.Default())
		if err != nil {
			fmt.Println("❌ Error encoding config:", err)
			os.Exit(1)
		}
		if err := os.WriteFile(initPath, content, 0644); err != nil {
			fmt.Printf("❌ Error creating %s: %v\n", initPath, err)
			os.Exit(1)
		}

		fmt.Printf("✅ Created %s\n", initPath)
		fmt.Println("📝 Point sources.loci and sources.coordinates at your spreadsheets")
		fmt.Println("🚀 Run 'redatlas ingest' to load them, then 'redatlas serve'")
	},
}

func init() {
	initCmd.Flags().StringVarP(&initPath, "path", "p", "config.yaml", "Where to write the config file")
}
