package main

import (
	"flag"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/overlayctl/internal/config"
	"github.com/danmuck/overlayctl/internal/observability"
)

var defaultPaths = map[string]string{
	"overlayd": "cmd/overlayd/config.toml",
	"client":   "cmd/overlay-client/client.toml",
	"catalog":  "cmd/overlayd/catalog.toml",
}

func main() {
	kind := flag.String("kind", "overlayd", "config kind: "+strings.Join(config.Kinds, "|"))
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	observability.InitLogger("configgen")

	defaultPath, ok := defaultPaths[*kind]
	if !ok {
		log.Error().Str("kind", *kind).Msg("configgen unknown kind")
		os.Exit(2)
	}

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath
		}
		if err := config.Validate(*kind, path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("configgen validation failed")
			os.Exit(1)
		}
		log.Info().Str("kind", *kind).Str("path", path).Msg("configgen validated")
		return
	}

	target := *output
	if target == "" {
		target = defaultPath
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Error().Err(err).Str("path", target).Msg("configgen write failed")
		os.Exit(1)
	}
	log.Info().Str("kind", *kind).Str("path", target).Msg("configgen wrote template")
}
