package util

import (
	"os"
	"path/filepath"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// NodeDirName is the per-user directory holding the node's files.
const NodeDirName = ".go-onion"

// UserHome returns the current user's home directory.
// Falls back to $HOME, then to the working directory, rather than panicking,
// which allows operation in containerized environments where $HOME may not be set.
func UserHome() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if home := os.Getenv("HOME"); home != "" {
			log.WithError(err).Warn("os.UserHomeDir failed, falling back to $HOME")
			return home
		}
		if wd, wdErr := os.Getwd(); wdErr == nil {
			log.WithError(err).Warn("os.UserHomeDir and $HOME unavailable; falling back to working directory")
			return wd
		}
		Panicf("go-onion: unable to determine home directory: %v", err)
	}
	return homeDir
}

// NodeDir is $HOME/.go-onion.
func NodeDir() string {
	return filepath.Join(UserHome(), NodeDirName)
}

// NodeFile returns the path of name inside NodeDir.
func NodeFile(name string) string {
	return filepath.Join(NodeDir(), name)
}
