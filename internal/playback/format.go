package playback

import "fmt"

// FormatDuration renders a span of timeline milliseconds for display.
// Spans under one second keep one decimal place ("7.3ms"); longer
// spans render as minutes:seconds, gaining an hours field only when
// there is one ("1:05", "1:02:05").
func FormatDuration(ms float64) string {
	if !isFinite(ms) || ms < 0 {
		ms = 0
	}
	if ms < 1000 {
		return fmt.Sprintf("%.1fms", ms)
	}
	total := int64(ms / 1000)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FormatOffset renders a timeline position relative to the session
// start, in the same shape FormatDuration uses.
func FormatOffset(t, sessionStart float64) string {
	return FormatDuration(t - sessionStart)
}
