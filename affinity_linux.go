//go:build linux

package stream

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// PinToCPU locks the calling goroutine to its OS thread and binds that
// thread to logical CPU id.
func PinToCPU(id int) error {
	if id < 0 || id >= runtime.NumCPU() {
		return NewConfigError("PinToCPU", fmt.Sprintf("cpu %d out of range [0, %d)", id, runtime.NumCPU()))
	}
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(id)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		runtime.UnlockOSThread()
		return NewExecutionError("PinToCPU", fmt.Sprintf("sched_setaffinity to cpu %d", id), err)
	}
	return nil
}
