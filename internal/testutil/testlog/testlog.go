package testlog

import (
	"testing"

	"github.com/danmuck/sumoctl/internal/logging"
	"github.com/rs/zerolog/log"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("start")
}

// Logf logs a progress line for the running test.
func Logf(format string, args ...any) {
	log.Debug().Msgf(format, args...)
}
