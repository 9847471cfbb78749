// Package cmd wires the closet-go command line interface.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jhelttu/closet-go/cmd/file"
	"github.com/jhelttu/closet-go/cmd/serve"
	"github.com/jhelttu/closet-go/internal/conf"
	"github.com/jhelttu/closet-go/internal/logging"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "closet-go",
		Short: "Garment classification and catalog service",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		serve.Command(settings),
		file.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Sync the settings struct with viper so command-line arguments
		// take precedence over the config file.
		if err := viper.Unmarshal(settings); err != nil {
			return err
		}
		if settings.Debug {
			logging.SetLevel(slog.LevelDebug)
		}
		return nil
	}

	return rootCmd
}

// setupFlags defines global flags, bound to their viper keys.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.GarmentNet.ModelPath, "model", viper.GetString("garmentnet.modelpath"), "Path to the TFLite model file")
	rootCmd.PersistentFlags().StringVar(&settings.GarmentNet.LabelPath, "labels", viper.GetString("garmentnet.labelpath"), "Path to an external label classes JSON file")
	rootCmd.PersistentFlags().IntVarP(&settings.GarmentNet.Threads, "threads", "j", viper.GetInt("garmentnet.threads"), "Number of CPU threads for inference (0 = all)")

	bindings := map[string]string{
		"debug":                 "debug",
		"garmentnet.modelpath":  "model",
		"garmentnet.labelpath":  "labels",
		"garmentnet.threads":    "threads",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			logging.Error("failed to bind flag", "flag", flag, "error", err)
		}
	}
}
