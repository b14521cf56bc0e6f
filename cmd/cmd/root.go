/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cmd is inkforge's cobra command tree: discover, fetch, bundle, and
// sources, wired against the config, fetch, store, translate, and dispatch
// packages.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"inkforge/internal/config"
	"inkforge/internal/logger"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "inkforge",
	Short: "inkforge discovers, fetches, translates, and bundles web novel/comic chapters.",
	Long: `inkforge is a CLI tool that discovers a work's chapter table of contents from
a source site, fetches and extracts each chapter's content, optionally
translates it, and bundles a selection of chapters into an EPUB.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.inkforge.yaml)")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(bundleCmd)
	rootCmd.AddCommand(sourcesCmd)
}

// initConfig loads the application configuration and initializes the logger.
// Exit codes are not mapped per pipeline.Error kind: Execute exits with
// status 1 for any error a subcommand returns.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init()
}
