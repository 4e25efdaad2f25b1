// Package scheduler implements the alarm state machine.
//
// The Scheduler is fed one clock sample per second. It evaluates alarms
// only on the first sample of a new wall-clock minute. A match while Idle
// moves it to Starting and asks the owner to open the sound; the reported
// outcome moves it to Sounding, or back to Idle on failure. An explicit stop
// returns it to Idle. Configuration reloads swap the active snapshot without
// touching playback. The type is not safe for concurrent use: a single
// event loop owns it.
package scheduler
