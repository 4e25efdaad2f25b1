package display

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

// TestFormat checks the clock, seconds and unpadded date layouts.
func TestFormat(t *testing.T) {
	t.Parallel()

	frame := Format(time.Date(2024, time.June, 3, 6, 0, 7, 0, time.Local), true)
	require.Equal(t, Frame{Time: "06:00", Seconds: "07", Date: "3.6.2024", Ringing: true}, frame)

	frame = Format(time.Date(2024, time.December, 24, 23, 59, 59, 0, time.Local), false)
	require.Equal(t, "23:59", frame.Time)
	require.Equal(t, "24.12.2024", frame.Date)
}

// TestTerminalModel_KeysAndFrames verifies key handling and rendering of the model.
func TestTerminalModel_KeysAndFrames(t *testing.T) {
	t.Parallel()

	stops := make(chan struct{}, 1)
	m := &terminalModel{stops: stops}

	_, cmd := m.Update(frameMsg(Frame{Time: "06:00", Seconds: "01", Date: "3.6.2024", Ringing: true}))
	require.Nil(t, cmd)

	view := m.View()
	require.Contains(t, view, "06:00")
	require.Contains(t, view, "3.6.2024")
	require.Contains(t, view, "press any key")

	// Two presses queue a single stop.
	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, stops, 1)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	require.True(t, m.quit)

	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	require.Equal(t, 80, m.width)
	require.Contains(t, m.View(), "06:00")
}

// TestHeadless_RenderAndStops verifies the headless surface accepts frames and coalesces stops.
func TestHeadless_RenderAndStops(t *testing.T) {
	t.Parallel()

	h := NewHeadless(context.Background())
	h.Render(Format(time.Now(), false))

	h.requestStop()
	h.requestStop()
	require.Len(t, h.Stops(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.Run(ctx))
}
