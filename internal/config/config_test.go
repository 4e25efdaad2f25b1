package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// writeConfig stores contents in a temporary config.yml and returns its path.
func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

// TestLoad_AlarmList verifies the list form with weekdays and audio path resolution.
func TestLoad_AlarmList(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
audio_path: beep.wav
alarms:
  - hour: 6
    minute: 0
    weekdays: [Monday]
  - hour: 7
    minute: 30
    weekdays: [Monday, Wednesday, Friday]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(filepath.Dir(path), "beep.wav"), cfg.AudioPath)
	require.Equal(t, []alarm.Alarm{
		{Hour: 6, Minute: 0, Weekdays: alarm.NewWeekdaySet(time.Monday)},
		{Hour: 7, Minute: 30, Weekdays: alarm.NewWeekdaySet(time.Monday, time.Wednesday, time.Friday)},
	}, cfg.Alarms)
}

// TestLoad_AbsoluteAudioPath ensures absolute audio paths are kept untouched.
func TestLoad_AbsoluteAudioPath(t *testing.T) {
	t.Parallel()

	audio := filepath.Join(t.TempDir(), "alarm.wav")
	path := writeConfig(t, "audio_path: "+audio+"\nalarms: []\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, audio, cfg.AudioPath)
	require.Empty(t, cfg.Alarms)
}

// TestParse_AlarmTime verifies the single-alarm form fires on every weekday.
func TestParse_AlarmTime(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte("audio_path: beep.wav\nalarm_time: {hour: 7, minute: 5}\n"))
	require.NoError(t, err)
	require.Equal(t, []alarm.Alarm{{Hour: 7, Minute: 5, Weekdays: alarm.AllWeekdays}}, cfg.Alarms)
}

// TestParse_EmptyWeekdays accepts an explicit empty weekday list as a never-firing alarm.
func TestParse_EmptyWeekdays(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte("audio_path: beep.wav\nalarms:\n  - {hour: 1, minute: 2, weekdays: []}\n"))
	require.NoError(t, err)
	require.Len(t, cfg.Alarms, 1)
	require.True(t, cfg.Alarms[0].Weekdays.Empty())
}

// TestParse_Errors checks that each failure class maps to its sentinel and returns no config.
func TestParse_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		contents string
		want     error
		contains string
	}{
		{
			name:     "invalid weekday",
			contents: "audio_path: beep.wav\nalarms:\n  - {hour: 6, minute: 0, weekdays: [Monday, Funday]}\n",
			want:     ErrInvalidWeekday,
			contains: `"Funday"`,
		},
		{
			name:     "lowercase weekday",
			contents: "audio_path: beep.wav\nalarms:\n  - {hour: 6, minute: 0, weekdays: [monday]}\n",
			want:     ErrInvalidWeekday,
			contains: "alarms[0]",
		},
		{
			name:     "hour out of range",
			contents: "audio_path: beep.wav\nalarms:\n  - {hour: 25, minute: 0, weekdays: [Monday]}\n",
			want:     ErrOutOfRange,
			contains: "hour 25",
		},
		{
			name:     "minute out of range",
			contents: "audio_path: beep.wav\nalarm_time: {hour: 5, minute: 60}\n",
			want:     ErrOutOfRange,
			contains: "alarm_time",
		},
		{
			name:     "negative hour",
			contents: "audio_path: beep.wav\nalarms:\n  - {hour: -1, minute: 0, weekdays: [Monday]}\n",
			want:     ErrParse,
		},
		{
			name:     "missing minute",
			contents: "audio_path: beep.wav\nalarms:\n  - {hour: 6, weekdays: [Monday]}\n",
			want:     ErrParse,
			contains: "minute",
		},
		{
			name:     "missing weekdays",
			contents: "audio_path: beep.wav\nalarms:\n  - {hour: 6, minute: 0}\n",
			want:     ErrParse,
			contains: "weekdays",
		},
		{
			name:     "missing audio path",
			contents: "alarms: []\n",
			want:     ErrParse,
			contains: "audio_path",
		},
		{
			name:     "missing alarms",
			contents: "audio_path: beep.wav\n",
			want:     ErrParse,
			contains: "alarm_time",
		},
		{
			name:     "weekdays on alarm_time",
			contents: "audio_path: beep.wav\nalarm_time: {hour: 6, minute: 0, weekdays: [Monday]}\n",
			want:     ErrParse,
		},
		{
			name:     "malformed yaml",
			contents: "audio_path: [unterminated\n",
			want:     ErrParse,
		},
		{
			name:     "empty document",
			contents: "",
			want:     ErrParse,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Parse([]byte(tc.contents))
			require.ErrorIs(t, err, tc.want)
			require.Nil(t, cfg)

			if tc.contains != "" {
				require.Contains(t, err.Error(), tc.contains)
			}
		})
	}
}

// TestLoad_MissingFile verifies read errors keep the underlying os error.
func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing.yml")

	cfg, err := Load(path)
	require.ErrorIs(t, err, ErrRead)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Contains(t, err.Error(), path)
	require.Nil(t, cfg)
}

// TestLoad_ParseErrorNamesFile ensures parse errors identify the failing file.
func TestLoad_ParseErrorNamesFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "audio_path: beep.wav\nalarms:\n  - {hour: 6, minute: 0, weekdays: [Funday]}\n")

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidWeekday)
	require.Contains(t, err.Error(), path)
}

// TestValidate checks required fields and ranges for configs built in code.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Validate(nil), ErrParse)
	require.ErrorIs(t, Validate(&alarm.Config{}), ErrParse)

	require.ErrorIs(t, Validate(&alarm.Config{
		AudioPath: "beep.wav",
		Alarms:    []alarm.Alarm{{Hour: 24}},
	}), ErrOutOfRange)

	require.ErrorIs(t, Validate(&alarm.Config{
		AudioPath: "beep.wav",
		Alarms:    []alarm.Alarm{{Minute: -1}},
	}), ErrOutOfRange)

	require.NoError(t, Validate(&alarm.Config{
		AudioPath: "beep.wav",
		Alarms:    []alarm.Alarm{{Hour: 23, Minute: 59, Weekdays: alarm.AllWeekdays}},
	}))
}
