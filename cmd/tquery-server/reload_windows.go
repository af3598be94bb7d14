//go:build windows

package main

func startReloader(_ *reloader) {
	// SIGHUP is not available on Windows. Reloading requires a server restart.
}
