// Package testlog bootstraps logging for tests.
package testlog

import (
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/framectl/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Debug().Str("test", t.Name()).Msg("test start")
}
