package closers

import (
	"context"
	"errors"
	"io"

	"github.com/sellora/marketplace/libs/logging"
)

// Log calls Close on the specified closer, logging on error
func Log(ctx context.Context, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logging.Logger(ctx, "closers.Log").Error().Err(err).Msg("error attempting to close")
	}
}

// Panic calls Close on the specified closer, panicking on error
func Panic(ctx context.Context, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logging.Logger(ctx, "closers.Panic").Error().Err(err).Msg("error attempting to close")
		// a body cut short by the client timeout reports context.Canceled on close
		if errors.Is(err, context.Canceled) {
			return
		}
		panic(err.Error())
	}
}
