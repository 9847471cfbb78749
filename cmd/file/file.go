// Package file implements the one-shot image classification subcommand.
package file

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhelttu/closet-go/internal/conf"
	"github.com/jhelttu/closet-go/internal/garmentnet"
	"github.com/jhelttu/closet-go/internal/labels"
)

// Command returns the file subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "file [image]",
		Short: "Classify a garment image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return classifyFile(settings, args[0], asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func classifyFile(settings *conf.Settings, path string, asJSON bool) error {
	imageData, err := os.ReadFile(path) //nolint:gosec // G304: path is a user supplied CLI argument
	if err != nil {
		return fmt.Errorf("cannot read image file: %w", err)
	}

	var table *labels.Table
	if settings.GarmentNet.LabelPath != "" {
		table, err = labels.LoadFile(settings.GarmentNet.LabelPath)
	} else {
		table, err = labels.Load()
	}
	if err != nil {
		return err
	}

	classifier, err := garmentnet.NewTFLite(settings, table)
	if err != nil {
		return err
	}

	result, err := classifier.Classify(imageData)
	if err != nil {
		return err
	}

	if asJSON {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	for _, attr := range labels.Attributes {
		fmt.Printf("%-12s %s\n", attr+":", result.Get(attr))
	}
	return nil
}
