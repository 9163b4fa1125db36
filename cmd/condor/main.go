package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"condor-trader/internal/cli"
	"condor-trader/internal/config"
	"condor-trader/internal/logging"
)

func main() {
	// Optional .env, mirroring environment overrides in config.
	_ = godotenv.Load()

	logger := logging.NewLogger()

	configDir := cli.ConfigDirFromArgs(os.Args[1:])
	if configDir == "" {
		configDir = os.Getenv("CONDOR_CONFIG_DIR")
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(cli.ExitInternalErr)
	}

	os.Exit(cli.Execute(cfg, logger))
}
