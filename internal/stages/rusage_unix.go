//go:build linux || darwin || freebsd || netbsd || openbsd

package stages

import (
	"runtime"
	"time"

	"golang.org/x/sys/unix"
)

// processUsage returns user+system CPU time and peak RSS in kilobytes.
func processUsage() (time.Duration, float64) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, 0
	}
	cpu := time.Duration(ru.Utime.Nano() + ru.Stime.Nano())
	rss := float64(ru.Maxrss)
	if runtime.GOOS == "darwin" {
		rss /= 1024
	}
	return cpu, rss
}
