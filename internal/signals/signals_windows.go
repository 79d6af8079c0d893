//go:build windows

package signals

import (
	"os"
	"syscall"
)

// DefaultTerminateSignals returns Ctrl+C and SIGTERM.
func DefaultTerminateSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}

// DefaultStatusSignals returns nil; windows has no user-defined signals.
func DefaultStatusSignals() []os.Signal {
	return nil
}
