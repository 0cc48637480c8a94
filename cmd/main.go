package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lumapix/lumapix/internal/config"
	"github.com/lumapix/lumapix/internal/gallery"
	"github.com/lumapix/lumapix/internal/util"
)

func main() {

	// set logging to json format for application
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(jsonHandler).
		With(slog.String(util.ServiceKey, util.ServiceGallery)))

	// create a logger for the main package
	logger := slog.Default().
		With(slog.String(util.PackageKey, util.PackageMain)).
		With(slog.String(util.ComponentKey, util.ComponentMain))

	path := os.Getenv("LUMAPIX_CONFIG")
	if path == "" {
		path = "config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load %s service config", util.ServiceGallery), "err", err.Error())
		os.Exit(1)
	}

	gallery, err := gallery.New(cfg)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to create %s service", util.ServiceGallery), "err", err.Error())
		os.Exit(1)
	}

	defer gallery.CloseDb()

	if err := gallery.Run(); err != nil {
		logger.Error(fmt.Sprintf("failed to run %s service", util.ServiceGallery), "err", err.Error())
		os.Exit(1)
	}

	select {} // block forever
}
