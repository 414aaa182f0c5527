package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyProject      = "project"
	KeyEvaluationID = "evaluation_id"
	KeyProvider     = "provider"
	KeySlot         = "slot"
	KeyOutcome      = "outcome"
	KeyReason       = "reason"
	KeySince        = "since"
	KeyNow          = "now"
	KeyTriggers     = "trigger_changes"
	KeyStatuses     = "status_changes"
	KeyLatestStatus = "latest_status"
	KeyNewestTrig   = "newest_trigger"
	KeyCount        = "count"
	KeyDurationMS   = "duration_ms"
	KeyScheduleID   = "schedule_id"
	KeyPath         = "path"
	KeyURL          = "url"
	KeyError        = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Project(name string) slog.Attr      { return slog.String(KeyProject, name) }
func EvaluationID(id string) slog.Attr   { return slog.String(KeyEvaluationID, id) }
func Provider(kind string) slog.Attr     { return slog.String(KeyProvider, kind) }
func Slot(name string) slog.Attr         { return slog.String(KeySlot, name) }
func Outcome(o string) slog.Attr         { return slog.String(KeyOutcome, o) }
func Reason(r string) slog.Attr          { return slog.String(KeyReason, r) }
func Since(t time.Time) slog.Attr        { return slog.Time(KeySince, t) }
func Now(t time.Time) slog.Attr          { return slog.Time(KeyNow, t) }
func Triggers(n int) slog.Attr           { return slog.Int(KeyTriggers, n) }
func Statuses(n int) slog.Attr           { return slog.Int(KeyStatuses, n) }
func LatestStatus(t time.Time) slog.Attr { return slog.Time(KeyLatestStatus, t) }
func NewestTrigger(t time.Time) slog.Attr {
	return slog.Time(KeyNewestTrig, t)
}
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func ScheduleID(id string) slog.Attr  { return slog.String(KeyScheduleID, id) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
