// Command tristore loads, queries and moves tristore triple data.
//
// Usage:
//
//	tristore load [--config=file] [--ext=.txt] [--recursive] [--db=path] [root...]
//	tristore query [--config=file] [--db=path] [--subject=s] [--predicate=p] [--object=o] [--not]
//	tristore export --db=path [--output=path] [--format=json|lines]
//	tristore import --db=path [--replace] file.json
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	version = "0.1.0"
	appName = "tristore"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	dbPath     string
}

func rootCmd() *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "In-memory subject/predicate/object triple store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file path (YAML)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite snapshot database path")

	cmd.AddCommand(
		loadCmd(&g),
		queryCmd(&g),
		exportCmd(&g),
		importCmd(&g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, version)
			},
		},
	)

	return cmd
}
