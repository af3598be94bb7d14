//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

func startReloader(r *reloader) {
	sighupChan := make(chan os.Signal, 1)
	signal.Notify(sighupChan, syscall.SIGHUP)
	go func() {
		for range sighupChan {
			r.reload()
		}
	}()
}
