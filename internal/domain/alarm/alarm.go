package alarm

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MaxHour is the largest valid hour of an alarm.
	MaxHour = 23
	// MaxMinute is the largest valid minute of an alarm.
	MaxMinute = 59
)

// Alarm is a time of day that fires on the listed weekdays.
type Alarm struct {
	// Hour is the hour of day in the range 0-23.
	Hour int
	// Minute is the minute of hour in the range 0-59.
	Minute int
	// Weekdays lists the days on which the alarm is eligible.
	// An empty set is valid and never fires.
	Weekdays WeekdaySet
}

// Matches reports whether the alarm is due at t.
// Only weekday, hour and minute of t are compared.
func (a *Alarm) Matches(t time.Time) bool {
	return a.Weekdays.Has(t.Weekday()) && t.Hour() == a.Hour && t.Minute() == a.Minute
}

// String renders the alarm as "HH:MM [days]".
func (a *Alarm) String() string {
	return fmt.Sprintf("%02d:%02d [%s]", a.Hour, a.Minute, a.Weekdays)
}

// Config is an immutable snapshot of the alarm configuration.
// It is replaced wholesale on reload and never mutated in place.
type Config struct {
	// Alarms is the set of configured alarms; order has no meaning.
	Alarms []Alarm
	// AudioPath is the sound played whenever any alarm fires.
	AudioPath string
}

// Match returns the first alarm due at t.
func (c *Config) Match(t time.Time) (*Alarm, bool) {
	if c == nil {
		return nil, false
	}

	for i := range c.Alarms {
		if c.Alarms[i].Matches(t) {
			return &c.Alarms[i], true
		}
	}

	return nil, false
}



// WeekdaySet is a set of weekdays stored as a bit mask indexed by time.Weekday.
type WeekdaySet uint8

// AllWeekdays contains every day of the week.
const AllWeekdays WeekdaySet = 1<<7 - 1

// NewWeekdaySet builds a set from the given days.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var set WeekdaySet
	for _, day := range days {
		set = set.With(day)
	}

	return set
}

// With returns a copy of the set including day.
func (s WeekdaySet) With(day time.Weekday) WeekdaySet {
	return s | 1<<uint(day)
}

// Has reports whether day is a member of the set.
func (s WeekdaySet) Has(day time.Weekday) bool {
	return s&(1<<uint(day)) != 0
}

// Empty reports whether the set has no members.
func (s WeekdaySet) Empty() bool {
	return s == 0
}

// Days lists the members starting from Monday.
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, len(weekOrder))

	for _, day := range weekOrder {
		if s.Has(day) {
			days = append(days, day)
		}
	}

	return days
}

// String renders the set as comma-separated weekday names.
func (s WeekdaySet) String() string {
	days := s.Days()
	names := make([]string, 0, len(days))

	for _, day := range days {
		names = append(names, day.String())
	}

	return strings.Join(names, ", ")
}

// weekOrder is the display order of weekdays, Monday first.
//
//nolint:gochecknoglobals // Read-only lookup table.
var weekOrder = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// ParseWeekday converts a full English weekday name to time.Weekday.
// Matching is case-sensitive: "Monday" is accepted, "monday" and "Mon" are not.
func ParseWeekday(name string) (time.Weekday, bool) {
	for _, day := range weekOrder {
		if day.String() == name {
			return day, true
		}
	}

	return time.Sunday, false
}
