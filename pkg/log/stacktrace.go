package log

import (
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Err attaches an error to the event together with a stacktrace when the
// error carries one (errors created through pkg/errors always do).
func Err(ev *zerolog.Event, err error) *zerolog.Event {
	ev = ev.Err(err)
	if st := extractStacktrace(err); st != "" {
		ev = ev.Str(KeyStacktrace, st)
	}
	return ev
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
