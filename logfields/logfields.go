package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field names shared by every package.
const (
	KeyChannel     = "channel_id"
	KeyParticipant = "participant_id"
	KeySessionID   = "session_id"
	KeyPhase       = "phase"
	KeyCount       = "count"
	KeyDurationMS  = "duration_ms"
	KeyCommand     = "command"
	KeyJob         = "job"
	KeyError       = "error"
)

func Channel(id string) slog.Attr          { return slog.String(KeyChannel, id) }
func Participant(id string) slog.Attr      { return slog.String(KeyParticipant, id) }
func SessionID(id string) slog.Attr        { return slog.String(KeySessionID, id) }
func Phase(p string) slog.Attr             { return slog.String(KeyPhase, p) }
func Count(n int) slog.Attr                { return slog.Int(KeyCount, n) }
func Command(name string) slog.Attr        { return slog.String(KeyCommand, name) }
func Job(name string) slog.Attr            { return slog.String(KeyJob, name) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Nanoseconds())/1e6)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
