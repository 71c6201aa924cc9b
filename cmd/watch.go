package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"micromachine.dev/bundlekit/lib/bundler"
	"micromachine.dev/bundlekit/lib/config"
	"micromachine.dev/bundlekit/lib/utils"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Rebuilds the project on changes",
	Long: `The watch command bundles the project and rebuilds it whenever a source file changes.
Changes to the configuration file or appinfo/info.xml reload the configuration.
Press Ctrl+C to stop.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fail(err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		b := bundler.Bundle{Config: cfg}

		utils.LogWithColor(utils.Cyan, "Running `bundlekit watch`, press Ctrl+C to stop...")
		err = b.Watch(ctx, func() (*config.Config, error) {
			return loadConfig(cmd)
		})
		if err != nil {
			fail(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
