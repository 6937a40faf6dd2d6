// Package logging sets up the zerolog logger every marketplace component logs through.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"

	appctx "github.com/sellora/marketplace/libs/context"
)

const diodeBufferSize = 1000

var (
	droppedLogTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_dropped_log_events_total",
			Help: "Log lines dropped because the async log writer was full",
		},
	)

	// Writer is what the last logger set up writes to. main closes it on exit so the
	// async writer flushes.
	Writer io.WriteCloser
)

func init() {
	prometheus.MustRegister(droppedLogTotal)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// SetupLogger builds the process logger and attaches it to ctx.
//
// Local runs get human readable console output. Every other environment writes JSON
// through a diode, so a slow stdout drops lines instead of stalling checkout requests.
// A writer under appctx.LogWriterCTXKey overrides both.
func SetupLogger(ctx context.Context) (context.Context, *zerolog.Logger) {
	env, err := appctx.GetStringFromContext(ctx, appctx.EnvironmentCTXKey)
	if err != nil || env == "" {
		env = "local"
	}

	w, ok := ctx.Value(appctx.LogWriterCTXKey).(io.Writer)
	switch {
	case ok:
		Writer = nopCloser{w}
	case env != "local":
		Writer = diode.NewWriter(os.Stdout, diodeBufferSize, 20*time.Millisecond, func(missed int) {
			droppedLogTotal.Add(float64(missed))
		})
	default:
		Writer = nopCloser{zerolog.ConsoleWriter{Out: os.Stdout}}
	}

	level, _ := appctx.GetLogLevelFromContext(ctx, appctx.LogLevelCTXKey)
	if debug, ok := ctx.Value(appctx.DebugLoggingCTXKey).(bool); ok && debug {
		level = zerolog.DebugLevel
	}

	l := zerolog.New(Writer).With().
		Timestamp().
		Str("env", env).
		Logger().
		Level(level)

	return l.WithContext(ctx), &l
}

// Logger returns the context logger tagged with the component it is used from.
func Logger(ctx context.Context, component string) *zerolog.Logger {
	l := FromContext(ctx).With().Str("module", component).Logger()
	return &l
}

// FromContext returns the context logger, setting one up when ctx has none.
func FromContext(ctx context.Context) *zerolog.Logger {
	l, err := appctx.GetLogger(ctx)
	if err != nil {
		_, l = SetupLogger(ctx)
	}

	return l
}
