//go:build linux || darwin || freebsd || netbsd || openbsd

package procutil

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// WaitForSigterm waits for either SIGTERM or SIGINT
//
// Returns the caught signal.
func WaitForSigterm() os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, unix.SIGTERM)
	sig := <-ch
	signal.Stop(ch)
	return sig
}

// NewSighupChan returns a channel, which is triggered on every SIGHUP.
func NewSighupChan() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGHUP)
	return ch
}

// SelfSIGHUP sends SIGHUP signal to the current process.
func SelfSIGHUP() {
	if err := unix.Kill(os.Getpid(), unix.SIGHUP); err != nil {
		panic(err)
	}
}
