// Package signal turns SIGINT and SIGTERM into cancellation of the loop's
// context. The loop notices at its next checkpoint, saves state and exits
// with the interrupted code.
package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler waits in the background for the first SIGINT or
// SIGTERM, runs onInterrupt with it and then calls cancel. The watcher
// exits without acting once ctx is done. onInterrupt may be nil.
func SetupSignalHandler(ctx context.Context, cancel context.CancelFunc, onInterrupt func(os.Signal)) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			if onInterrupt != nil {
				onInterrupt(sig)
			}
			cancel()
		case <-ctx.Done():
			return
		}
	}()
}
