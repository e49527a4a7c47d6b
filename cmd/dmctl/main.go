// Command dmctl administers Dungeon Master campaign data: it initialises,
// seeds, imports and exports context files, previews turn context and
// serves the MCP tools over stdio.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var opts globalOptions
	root := &cobra.Command{
		Use:          "dmctl",
		Short:        "Manage Dungeon Master campaign data",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(initCmd(&opts))
	root.AddCommand(seedCmd(&opts))
	root.AddCommand(importCmd(&opts))
	root.AddCommand(exportCmd(&opts))
	root.AddCommand(filesCmd(&opts))
	root.AddCommand(classifyCmd(&opts))
	root.AddCommand(contextCmd(&opts))
	root.AddCommand(rollCmd())
	root.AddCommand(mcpCmd(&opts))
	root.AddCommand(versionCmd())
	return root
}
