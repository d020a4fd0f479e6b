package testlog

import (
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/overlayctl/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("test start")
}
