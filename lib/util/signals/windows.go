//go:build windows

package signals

import (
	"os"
	"os/signal"
)

func notify(c chan<- os.Signal) {
	signal.Notify(c, os.Interrupt)
}

func isReload(os.Signal) bool {
	return false
}
