// Package alarm contains the core domain types of the alarm clock.
//
// It defines Alarm (a time of day with a set of recurrence weekdays) and
// Config (the immutable snapshot of all alarms plus the sound to play).
// A reload builds a new Config; an existing one is never modified.
package alarm
