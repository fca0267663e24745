package sentinel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"
)

// errAlreadyRunning is returned when another sentinel process owns the hardware.
var errAlreadyRunning = errors.New("another sentinel process is already running")

// processLister lists running processes.
type processLister func() ([]ps.Process, error)

// ensureSingleInstance refuses to start when another process with the same
// executable name runs: two sentinels would pulse the same relay.
func ensureSingleInstance(list processLister, executable string, self int) error {
	processes, err := list()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processes {
		if process.Pid() == self {
			continue
		}

		if process.Executable() == executable {
			return fmt.Errorf("%w: pid %d", errAlreadyRunning, process.Pid())
		}
	}

	return nil
}

// executableName returns the base name of the running binary.
func executableName() string {
	path, err := os.Executable()
	if err != nil {
		return filepath.Base(os.Args[0])
	}

	return filepath.Base(path)
}
