package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	reqctx "github.com/baechuer/storefront-auth/internal/pkg/context"
)

var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init configures the process logger on stdout.
func Init(level, format string) {
	InitWithWriter(os.Stdout, level, format)
}

// InitWithWriter accepts a level name (default info) and a format,
// "json" or "console" (default).
func InitWithWriter(w io.Writer, level, format string) {
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	if strings.EqualFold(format, "json") {
		Logger = zerolog.New(w).With().Timestamp().Logger().Level(lvl)
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger().Level(lvl)
	}

	// set global
	zlog.Logger = Logger
}

// WithCtx returns the process logger tagged with the request id in ctx, if any.
func WithCtx(ctx context.Context) *zerolog.Logger {
	l := Logger
	if id := reqctx.GetRequestID(ctx); id != "" {
		l = l.With().Str("request_id", id).Logger()
	}
	return &l
}
