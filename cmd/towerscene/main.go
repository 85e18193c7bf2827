// Package main is the entry point for the towerscene viewer.
package main

import (
	"fmt"
	"os"

	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/towerscene/internal/app"
	"github.com/Faultbox/towerscene/internal/config"
	"github.com/Faultbox/towerscene/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if config.WriteConfigRequested() {
		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Wrote", config.UserConfigPath())
		return
	}

	logger.Info("=== towerscene ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	a, err := app.New(cfg)
	if err != nil {
		// Initialization failures are shown to the user and end the
		// process without an error status.
		logger.Error("initialization failed", zap.Error(err))
		dialog.Message("%v", err).Title(app.Title).Error()
		logger.Sync()
		os.Exit(0)
	}

	err = a.Run()
	a.Close()
	if err != nil {
		logger.Error("frame error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("closed normally")
}
