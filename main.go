package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tilbot/internal/config"
	"tilbot/internal/errlog"
	"tilbot/internal/runner"
	"tilbot/internal/slackapi"
)

// defaultConfigPath derives the descriptor location from the install
// location: resource/config.json next to the binary.
func defaultConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return filepath.Join("resource", "config.json")
	}
	return filepath.Join(filepath.Dir(exe), "resource", "config.json")
}

func main() {
	// Parse command line flags
	var alert bool
	flag.BoolVar(&alert, "alert", false, "Post the reminder message instead of the daily summary")
	flag.BoolVar(&alert, "a", false, "Shorthand for -alert")
	var configPath string
	flag.StringVar(&configPath, "config_path", "", "Path to the config JSON (default: resource/config.json beside the executable)")
	flag.StringVar(&configPath, "c", "", "Shorthand for -config_path")
	listFlag := flag.Bool("list", false, "List available channels and exit")
	flag.Parse()

	// Optional .env for local runs; absence is fine.
	_ = godotenv.Load()

	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if configPath == "" {
		configPath = os.Getenv("TIL_CONFIG_PATH")
	}
	if configPath == "" {
		configPath = defaultConfigPath()
	}

	// Load configuration
	settings, err := config.Load(configPath, os.Getenv("TIL_TOKEN"))
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	api := slackapi.New(settings, logger)

	if *listFlag {
		if err := api.ListChannels(); err != nil {
			logger.Fatal("Failed to list channels", zap.Error(err))
		}
		return
	}

	errLog, err := errlog.Open(errlog.DefaultPath)
	if err != nil {
		logger.Fatal("Failed to open error log", zap.Error(err))
	}

	message, err := runner.New(settings, api, errLog, logger).Run(alert)
	if err != nil {
		errLog.Close()
		logger.Fatal("Run failed", zap.Error(err))
	}
	errLog.Close()

	fmt.Println(message)
}
