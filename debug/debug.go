package debug

import (
	"os"
	"strconv"
)

type debug struct {
	Diff  bool
	Flush bool
	Watch bool
	Path  bool
}

var d *debug

func init() {
	d = &debug{}
	d.Diff = boolEnv("SETDATA_DEBUG_DIFF")
	d.Flush = boolEnv("SETDATA_DEBUG_FLUSH")
	d.Watch = boolEnv("SETDATA_DEBUG_WATCH")
	d.Path = boolEnv("SETDATA_DEBUG_PATH")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Diff() bool {
	return d.Diff
}
func Flush() bool {
	return d.Flush
}
func Watch() bool {
	return d.Watch
}
func Path() bool {
	return d.Path
}
