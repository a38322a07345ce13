package util

import (
	"fmt"
)

// Panicf panics with a formatted message. It marks states the node cannot
// reach without a programming error, such as encoding a message type the
// codec has no layout for.
func Panicf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}
