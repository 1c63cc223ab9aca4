package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	configFile := flag.String("config", "", "path to server config YAML (optional)")
	port := flag.Int("port", 0, "HTTP port, overrides config value")
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
