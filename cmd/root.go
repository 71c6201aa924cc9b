package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"micromachine.dev/bundlekit/lib/config"
	"micromachine.dev/bundlekit/lib/utils"
)

// Version is set by main from the release build flags.
var Version = "dev"

var rootDir string
var configFile string
var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bundlekit",
	Short: "Bundles apps and libraries with esbuild",
	Long: `bundlekit builds JavaScript apps and libraries with esbuild using shared
configuration profiles:
  app   one ES target below js/ and css/ of the project, CSS entry point per entry
  lib   one target per module format in dist/, CSS re-imported from the chunks
  base  a single ES target in dist/

Settings are read from bundlekit.toml, bundlekit.json or bundlekit.jsonc and can be
overridden with BUNDLEKIT_* environment variables and flags.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			slog.SetDefault(slog.New(utils.NewColorHandlerWithOptions(os.Stderr, slog.LevelDebug)))
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", ".", "project root directory")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "configuration file (default is bundlekit.toml, .json or .jsonc in the root)")
	rootCmd.PersistentFlags().StringP("profile", "p", config.ProfileApp, "configuration profile: app, lib or base")
	rootCmd.PersistentFlags().StringP("mode", "m", config.ModeProduction, "build mode: production or development")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
}

// loadConfig layers the configuration file, environment and the flags of cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	for _, name := range []string{"profile", "mode"} {
		flag := cmd.Flag(name)
		// unset flags must not hide the configuration file
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(name, flag); err != nil {
			return nil, err
		}
	}

	file, env, err := config.Load(v, rootDir, configFile)
	if err != nil {
		return nil, err
	}
	env.Command = cmd.Name()

	return file.Config(env)
}

func fail(err error) {
	slog.Error("✗ " + err.Error())
	os.Exit(1)
}
