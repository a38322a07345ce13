//go:build !windows

package signals

import (
	"os"
	"os/signal"
	"syscall"
)

func notify(c chan<- os.Signal) {
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
}

func isReload(sig os.Signal) bool {
	return sig == syscall.SIGHUP
}
