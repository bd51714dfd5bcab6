//go:build unix

package client

import (
	"os"
	"syscall"
)

// foregroundSignals - сигналы возврата процесса на передний план.
var foregroundSignals = []os.Signal{syscall.SIGCONT}

func isForegroundSignal(sig os.Signal) bool {
	return sig == syscall.SIGCONT
}
