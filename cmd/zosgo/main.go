// SPDX-License-Identifier: Apache-2.0

// Command zosgo converts optical analysis results into validated records.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// This will be set by goreleaser
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
