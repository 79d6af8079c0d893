//go:build !windows

package signals

import (
	"os"
	"syscall"
)

// DefaultTerminateSignals returns SIGINT and SIGTERM.
func DefaultTerminateSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}

// DefaultStatusSignals returns SIGUSR1.
func DefaultStatusSignals() []os.Signal {
	return []os.Signal{syscall.SIGUSR1}
}
