package playback

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		ms   float64
		want string
	}{
		{name: "zero", ms: 0, want: "0.0ms"},
		{name: "sub-millisecond", ms: 0.4, want: "0.4ms"},
		{name: "millis with decimal", ms: 7.3, want: "7.3ms"},
		{name: "rounds to one decimal", ms: 7.34, want: "7.3ms"},
		{name: "just under a second", ms: 999.9, want: "999.9ms"},
		{name: "one second", ms: 1000, want: "0:01"},
		{name: "fifty-nine seconds", ms: 59_999, want: "0:59"},
		{name: "one minute", ms: 60_000, want: "1:00"},
		{name: "minute and seconds", ms: 65_000, want: "1:05"},
		{name: "just under an hour", ms: 3_599_000, want: "59:59"},
		{name: "one hour", ms: 3_600_000, want: "1:00:00"},
		{name: "hour minute second", ms: 3_725_000, want: "1:02:05"},
		{name: "long session", ms: 45_296_000, want: "12:34:56"},
		{name: "negative clamps", ms: -42, want: "0.0ms"},
		{name: "nan clamps", ms: math.NaN(), want: "0.0ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.ms))
		})
	}
}

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "0:02", FormatOffset(2500, 500))
	assert.Equal(t, "250.0ms", FormatOffset(750, 500))
	assert.Equal(t, "0.0ms", FormatOffset(400, 500), "positions before start clamp")
}
