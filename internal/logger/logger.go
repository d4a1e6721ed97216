package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

func SetupLogger(debug bool) *zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zlog := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &zlog
}
