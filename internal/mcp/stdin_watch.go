package mcp

import (
	"context"
	"log"
	"os"
	"time"
)

// WatchParent monitors for parent process death in a background
// goroutine and calls cancelFn when the parent PID changes, so serve
// processes do not linger after their frontend exits.
//
// This must NOT read from stdin: the MCP SDK's StdioTransport owns
// stdin exclusively, and stealing bytes here would corrupt the
// JSON-RPC stream.
func WatchParent(ctx context.Context, cancelFn context.CancelFunc) {
	ppid := os.Getppid()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
				if os.Getppid() != ppid {
					log.Printf("[mcp] WARN: parent process died (was pid %d), shutting down", ppid)
					cancelFn()
					return
				}
			}
		}
	}()
}
