// Package display turns clock samples into frames and shows them on a surface.
//
// A Surface only receives immutable Frame values and reports the user's
// silence gesture on a channel; it never reaches back into alarm state.
package display

import (
	"context"
	"time"
)

// Layouts used to format a sample.
const (
	timeLayout    = "15:04"
	secondsLayout = "05"
	dateLayout    = "2.1.2006"
)

// Frame is one rendered second.
type Frame struct {
	// Time is the hour and minute, e.g. "06:00".
	Time string
	// Seconds is the two-digit second, e.g. "07".
	Seconds string
	// Date is day.month.year without padding, e.g. "3.6.2024".
	Date string
	// Ringing is set while an alarm is sounding.
	Ringing bool
}

// Format renders a sample into a frame.
func Format(t time.Time, ringing bool) Frame {
	return Frame{
		Time:    t.Format(timeLayout),
		Seconds: t.Format(secondsLayout),
		Date:    t.Format(dateLayout),
		Ringing: ringing,
	}
}

// Surface shows frames and reports silence requests.
type Surface interface {
	// Run drives the surface until ctx is canceled or the user quits.
	Run(ctx context.Context) error
	// Render shows a frame. It must not block the caller for long.
	Render(frame Frame)
	// Stops delivers one value per silence gesture.
	Stops() <-chan struct{}
}
