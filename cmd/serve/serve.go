// Package serve implements the HTTP service subcommand.
package serve

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/jhelttu/closet-go/internal/api"
	"github.com/jhelttu/closet-go/internal/conf"
	"github.com/jhelttu/closet-go/internal/datastore"
	"github.com/jhelttu/closet-go/internal/garmentnet"
	"github.com/jhelttu/closet-go/internal/labels"
	"github.com/jhelttu/closet-go/internal/logging"
	"github.com/jhelttu/closet-go/internal/observability"
	"github.com/jhelttu/closet-go/internal/pipeline"
	"github.com/jhelttu/closet-go/internal/recommend"
)

const shutdownTimeout = 10 * time.Second

// Command returns the serve subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the classification and catalog HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", settings.WebServer.Port, "Port for the HTTP server")
	return cmd
}

func runServer(settings *conf.Settings) error {
	table, err := loadLabelTable(settings)
	if err != nil {
		return err
	}

	classifier, err := garmentnet.NewTFLite(settings, table)
	if err != nil {
		return err
	}

	ds := datastore.New(settings)
	if ds == nil {
		return errors.New("no datastore backend enabled in configuration")
	}
	if err := ds.Open(); err != nil {
		return err
	}
	defer func() {
		if err := ds.Close(); err != nil {
			logging.Error("failed to close datastore", "error", err)
		}
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	var recommender *recommend.Client
	if settings.Recommend.APIKey != "" {
		recommender, err = recommend.NewClient(recommend.Config{
			APIKey:   settings.Recommend.APIKey,
			BaseURL:  settings.Recommend.BaseURL,
			Model:    settings.Recommend.Model,
			Timeout:  settings.Recommend.Timeout,
			CacheTTL: settings.Recommend.CacheTTL,
		})
		if err != nil {
			return err
		}
	} else {
		logging.Warn("recommendation API key not configured, /recommendations disabled")
	}

	p := pipeline.New(classifier, ds, metrics)

	e := echo.New()
	e.HideBanner = true
	api.New(e, p, ds, settings, recommender, metrics)

	errChan := make(chan error, 1)
	go func() {
		logging.Info("HTTP server starting", "port", settings.WebServer.Port)
		if err := e.Start(":" + settings.WebServer.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		logging.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(ctx)
}

// loadLabelTable loads the embedded label table, or an external file when
// one is configured alongside a custom model.
func loadLabelTable(settings *conf.Settings) (*labels.Table, error) {
	if settings.GarmentNet.LabelPath != "" {
		return labels.LoadFile(settings.GarmentNet.LabelPath)
	}
	return labels.Load()
}
