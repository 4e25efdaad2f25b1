// Package instance prevents two clocks from ringing the same alarms.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another process with the same executable name is alive.
var ErrAlreadyRunning = errors.New("another alarm clock is already running")

// Lister returns the running processes.
type Lister func() ([]ps.Process, error)

// Guard checks for other running copies of an executable.
type Guard struct {
	// executable is the process name to look for.
	executable string
	// pid is the process to ignore, normally the current one.
	pid int
	// list enumerates processes.
	list Lister
}

// NewGuard creates a guard for the current executable.
func NewGuard() *Guard {
	name := filepath.Base(os.Args[0])
	if path, err := os.Executable(); err == nil {
		name = filepath.Base(path)
	}

	return &Guard{
		executable: name,
		pid:        os.Getpid(),
		list:       ps.Processes,
	}
}

// Check returns ErrAlreadyRunning with the other process id when a copy is found.
func (g *Guard) Check() error {
	processList, err := g.list()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processList {
		if process.Pid() == g.pid {
			continue
		}

		if process.Executable() != g.executable {
			continue
		}

		return fmt.Errorf("%w: pid %d (%s)", ErrAlreadyRunning, process.Pid(), g.executable)
	}

	return nil
}
