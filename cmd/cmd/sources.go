package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"inkforge/internal/catalog"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the source adapters registered from a sources file",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		if sourcesFile == "" {
			fmt.Println("no --sources-file given; only the dispatcher's built-in registrations (none) are available")
			return nil
		}
		provider, err := catalog.LoadFileProvider(sourcesFile)
		if err != nil {
			return err
		}
		configs, err := provider.List()
		if err != nil {
			return err
		}
		for _, sc := range configs {
			adapter := sc.Adapter
			if adapter == "" {
				adapter = "generic"
			}
			fmt.Printf("%-20s %-16s %s\n", sc.Name, adapter, sc.BaseURL)
		}
		return nil
	},
}

func init() {
	sourcesCmd.Flags().StringVar(&sourcesFile, "sources-file", "", "YAML file of declarative source configurations")
}
