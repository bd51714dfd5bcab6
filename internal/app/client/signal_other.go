//go:build !unix

package client

import "os"

var foregroundSignals []os.Signal

func isForegroundSignal(os.Signal) bool {
	return false
}
