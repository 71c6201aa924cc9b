package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"micromachine.dev/bundlekit/lib/bundler"
	"micromachine.dev/bundlekit/lib/utils"
)

var packageManager string

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Bundles the project",
	Long: `The build command bundles the project for distribution.
It performs the following steps:
1. Locates and parses the bundlekit configuration file (toml, json, or jsonc).
2. Creates the build configuration of the selected profile.
3. Bundles every entry point with esbuild and runs the output plugins.
4. Emits type declarations for libraries written in TypeScript.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fail(err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		b := bundler.Bundle{
			Config:         cfg,
			PackageManager: packageManager,
		}

		start := time.Now()
		utils.LogWithColor(utils.Cyan, "Running `bundlekit build`...")
		if err := b.Pack(ctx); err != nil {
			fail(err)
		}
		utils.LogDone("Completed `bundlekit build`", start)
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&packageManager, "package-manager", "", "package manager used to run tsc (default is detected from the lock file)")
}
