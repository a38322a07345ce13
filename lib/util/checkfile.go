package util

import (
	"os"
)

// CheckFileExists reports whether fpath can be stat'ed.
func CheckFileExists(fpath string) bool {
	_, e := os.Stat(fpath)
	return e == nil
}

// CheckFileReadable reports whether fpath is a regular file this process can
// open for reading.
func CheckFileReadable(fpath string) bool {
	info, err := os.Stat(fpath)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	f, err := os.Open(fpath)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
