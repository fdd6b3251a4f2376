package main

import (
	"os"
	"os/signal"
	"syscall"

	dupfind "github.com/mattkeenan/dupfind/pkg"
)

// setupSignalHandler returns a channel that is closed when SIGINT, SIGTERM
// or SIGPIPE arrives. A second signal is left to the default handler.
func setupSignalHandler() <-chan struct{} {
	shutdown := make(chan struct{})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGPIPE)

	go func() {
		sig := <-sigChan
		signal.Stop(sigChan)

		dupfind.Logger().WithField("signal", sig.String()).Warn("Received signal, finishing files in progress")
		close(shutdown)
	}()

	return shutdown
}
