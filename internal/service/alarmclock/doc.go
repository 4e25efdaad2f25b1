// Package alarmclock runs the alarm clock: it wires the configuration, the
// clock source, the optional configuration watcher, the scheduler, the
// player and the display surface, and owns the single event loop that
// serializes every change to scheduler state.
package alarmclock
