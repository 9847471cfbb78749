package main

import (
	"fmt"
	"os"

	"github.com/jhelttu/closet-go/cmd"
	"github.com/jhelttu/closet-go/internal/conf"
	"github.com/jhelttu/closet-go/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}
	settings.Version = version

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
