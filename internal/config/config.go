package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// DefaultConfigFilename is the well-known configuration path used when none is given.
const DefaultConfigFilename = "config.yml"

var (
	// ErrRead is returned when the configuration file cannot be read.
	ErrRead = errors.New("read configuration")
	// ErrParse is returned when the document is malformed or misses a required field.
	ErrParse = errors.New("parse configuration")
	// ErrInvalidWeekday is returned for weekday tokens other than the seven full English names.
	ErrInvalidWeekday = errors.New("invalid weekday")
	// ErrOutOfRange is returned when an hour or minute is outside its clock range.
	ErrOutOfRange = errors.New("value out of range")
)

// document mirrors the YAML layout. Pointers distinguish missing fields from zero values.
type document struct {
	// AudioPath is the sound asset played when an alarm fires.
	AudioPath *string `yaml:"audio_path"`
	// Alarms is the list form with per-alarm weekdays.
	Alarms []alarmDocument `yaml:"alarms"`
	// AlarmTime is the single-alarm form that fires every day.
	AlarmTime *alarmDocument `yaml:"alarm_time"`
}

// alarmDocument is one alarm entry as written in the file.
type alarmDocument struct {
	// Hour is the hour of day.
	Hour *uint `yaml:"hour"`
	// Minute is the minute of hour.
	Minute *uint `yaml:"minute"`
	// Weekdays lists full English weekday names.
	Weekdays []string `yaml:"weekdays"`
}

// Load reads the configuration at path and returns a validated snapshot.
// Relative audio paths are resolved against the directory of the file.
func Load(path string) (*alarm.Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	path = filepath.Clean(path)

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrRead, path, err)
	}

	cfg, err := Parse(contents)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if !filepath.IsAbs(cfg.AudioPath) {
		cfg.AudioPath = filepath.Join(filepath.Dir(path), cfg.AudioPath)
	}

	return cfg, nil
}

// Parse decodes a YAML document into a validated snapshot.
func Parse(contents []byte) (*alarm.Config, error) {
	var doc document

	if err := yaml.NewDecoder(bytes.NewReader(contents)).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrParse)
		}

		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	if doc.AudioPath == nil || *doc.AudioPath == "" {
		return nil, fmt.Errorf("%w: missing field audio_path", ErrParse)
	}

	if doc.Alarms == nil && doc.AlarmTime == nil {
		return nil, fmt.Errorf("%w: missing field alarms or alarm_time", ErrParse)
	}

	cfg := &alarm.Config{
		Alarms:    make([]alarm.Alarm, 0, len(doc.Alarms)+1),
		AudioPath: *doc.AudioPath,
	}

	for i := range doc.Alarms {
		if doc.Alarms[i].Weekdays == nil {
			return nil, fmt.Errorf("alarms[%d]: %w: missing field weekdays", i, ErrParse)
		}

		a, err := doc.Alarms[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("alarms[%d]: %w", i, err)
		}

		cfg.Alarms = append(cfg.Alarms, a)
	}

	if doc.AlarmTime != nil {
		if len(doc.AlarmTime.Weekdays) > 0 {
			return nil, fmt.Errorf("%w: alarm_time fires daily and takes no weekdays", ErrParse)
		}

		a, err := doc.AlarmTime.toDomain()
		if err != nil {
			return nil, fmt.Errorf("alarm_time: %w", err)
		}

		a.Weekdays = alarm.AllWeekdays
		cfg.Alarms = append(cfg.Alarms, a)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks a snapshot built in code or decoded from a file.
func Validate(cfg *alarm.Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: configuration is not set", ErrParse)
	}

	if cfg.AudioPath == "" {
		return fmt.Errorf("%w: missing field audio_path", ErrParse)
	}

	for i, a := range cfg.Alarms {
		if a.Hour < 0 || a.Hour > alarm.MaxHour {
			return fmt.Errorf("alarms[%d]: %w: hour %d not in 0-%d", i, ErrOutOfRange, a.Hour, alarm.MaxHour)
		}

		if a.Minute < 0 || a.Minute > alarm.MaxMinute {
			return fmt.Errorf("alarms[%d]: %w: minute %d not in 0-%d", i, ErrOutOfRange, a.Minute, alarm.MaxMinute)
		}
	}

	return nil
}

// toDomain converts one entry, rejecting missing fields and unknown weekdays.
func (d *alarmDocument) toDomain() (alarm.Alarm, error) {
	if d.Hour == nil {
		return alarm.Alarm{}, fmt.Errorf("%w: missing field hour", ErrParse)
	}

	if d.Minute == nil {
		return alarm.Alarm{}, fmt.Errorf("%w: missing field minute", ErrParse)
	}

	if *d.Hour > alarm.MaxHour {
		return alarm.Alarm{}, fmt.Errorf("%w: hour %d not in 0-%d", ErrOutOfRange, *d.Hour, alarm.MaxHour)
	}

	if *d.Minute > alarm.MaxMinute {
		return alarm.Alarm{}, fmt.Errorf("%w: minute %d not in 0-%d", ErrOutOfRange, *d.Minute, alarm.MaxMinute)
	}

	var weekdays alarm.WeekdaySet

	for _, token := range d.Weekdays {
		day, ok := alarm.ParseWeekday(token)
		if !ok {
			return alarm.Alarm{}, fmt.Errorf("%w %q", ErrInvalidWeekday, token)
		}

		weekdays = weekdays.With(day)
	}

	return alarm.Alarm{
		Hour:     int(*d.Hour),
		Minute:   int(*d.Minute),
		Weekdays: weekdays,
	}, nil
}
