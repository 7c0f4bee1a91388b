//go:build !linux

package stream

import "runtime"

// PinToCPU only locks the goroutine to its OS thread on non-Linux platforms.
func PinToCPU(id int) error {
	runtime.LockOSThread()
	Logger().Warnf("cpu affinity is not supported on %s; cpu %d ignored", runtime.GOOS, id)
	return nil
}
