package observability

import (
	"github.com/danmuck/sumoctl/internal/builder"
	"github.com/rs/zerolog"
)

// StageLogger returns a builder observer that logs every transition at trace level.
func StageLogger(logger zerolog.Logger) builder.Observer {
	return builder.ObserverFunc(func(t builder.Transition) {
		event := logger.Trace().Str("from", t.From).Str("op", t.Op)
		if t.To != nil {
			event = event.Str("to", t.To.String())
		}
		if t.Frame != nil {
			event = event.
				Str("type", t.Frame.Type.String()).
				Uint8("buffer", uint8(t.Frame.BufferID)).
				Uint8("seq", t.Frame.Sequence)
			if t.Frame.Feature != nil {
				event = event.Str("feature", t.Frame.Feature.String())
			}
		}
		event.Msg("builder transition")
	})
}
