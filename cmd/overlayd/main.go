package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/overlayctl/internal/observability"
	"github.com/danmuck/overlayctl/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to an overlayd TOML config")
	flag.Parse()

	observability.InitLogger("overlayd")

	cfg := server.DefaultServiceConfig()
	if *configPath != "" {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "overlayd: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	svc, err := server.NewService(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "overlayd: %v\n", err)
		os.Exit(1)
	}
	if err := svc.Run(); err != nil {
		log.Error().Err(err).Msg("overlayd exited")
		os.Exit(1)
	}
}
