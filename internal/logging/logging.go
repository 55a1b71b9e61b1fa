package logging

import (
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a console logger writing to out. Every line carries the run id so the
// output of one migration run can be told apart from another.
func New(out io.Writer, level string) zerolog.Logger {
	return log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}).
		Level(ParseLevel(level)).
		With().
		Str("run_id", uuid.NewString()).
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
