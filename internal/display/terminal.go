package display

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Colors of the original fullscreen window.
const (
	backgroundColor = lipgloss.Color("#2d1301")
	foregroundColor = lipgloss.Color("#ff0000")
)

// ErrQuit is returned by Terminal.Run when the user asks to exit.
var ErrQuit = errors.New("quit requested")

// frameMsg carries a new frame into the bubbletea program.
type frameMsg Frame

// Terminal is a fullscreen terminal surface built on bubbletea.
// Any key silences the alarm; q or ctrl+c quits.
type Terminal struct {
	// program is the running bubbletea program.
	program *tea.Program
	// stops carries silence gestures to the event loop.
	stops chan struct{}
	// model is the view state.
	model *terminalModel
}

// NewTerminal creates a terminal surface using the alternate screen.
func NewTerminal(opts ...tea.ProgramOption) *Terminal {
	t := &Terminal{
		stops: make(chan struct{}, 1),
	}

	t.model = &terminalModel{
		stops: t.stops,
		frame: Frame{Time: "--:--", Seconds: "--"},
	}

	t.program = tea.NewProgram(t.model, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)

	return t
}

// Run starts the program and blocks until ctx is canceled or the user quits.
func (t *Terminal) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		t.program.Quit()
	}()

	final, err := t.program.Run()
	if err != nil {
		return fmt.Errorf("run terminal: %w", err)
	}

	if m, ok := final.(*terminalModel); ok && m.quit {
		return ErrQuit
	}

	return nil
}

// Render hands a frame to the program's update loop.
func (t *Terminal) Render(frame Frame) {
	t.program.Send(frameMsg(frame))
}

// Stops returns the silence channel.
func (t *Terminal) Stops() <-chan struct{} {
	return t.stops
}

// terminalModel is the bubbletea model showing the clock.
type terminalModel struct {
	// frame is the latest frame.
	frame Frame
	// width and height are the terminal size.
	width, height int
	// stops receives silence gestures.
	stops chan<- struct{}
	// quit is set when the user asked to exit.
	quit bool
}

// Init implements tea.Model.
func (m *terminalModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *terminalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.frame = Frame(msg)

		return m, nil
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quit = true

			return m, tea.Quit
		default:
			// Coalesce repeated presses; one pending stop is enough.
			select {
			case m.stops <- struct{}{}:
			default:
			}

			return m, nil
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m *terminalModel) View() string {
	text := lipgloss.NewStyle().Foreground(foregroundColor).Background(backgroundColor)

	clock := lipgloss.JoinHorizontal(
		lipgloss.Bottom,
		text.Bold(true).Render(m.frame.Time),
		text.Render(" "+m.frame.Seconds),
	)

	lines := []string{clock, "", text.Render(m.frame.Date)}
	if m.frame.Ringing {
		lines = append(lines, "", text.Blink(true).Render("press any key to stop the alarm"))
	}

	body := lipgloss.JoinVertical(lipgloss.Center, lines...)
	if m.width == 0 || m.height == 0 {
		return body
	}

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		body,
		lipgloss.WithWhitespaceBackground(backgroundColor),
	)
}
