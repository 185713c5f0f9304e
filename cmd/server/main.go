// Package main is the entry point for the mml2midi API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/james-see/mml2midi/pkg/api"
	"github.com/james-see/mml2midi/pkg/config"
)

func main() {
	configFile := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("swagger docs", "url", fmt.Sprintf("http://localhost:%d/swagger/index.html", cfg.Server.Port))

	if err := api.StartServer(cfg, logger); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
