// Package main provides the entry point for the amansearch CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Aman-CERP/amansearch/cmd/amansearch/cmd"
	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprint(os.Stderr, amerrors.FormatForCLI(err))
		stop()
		os.Exit(1)
	}
}
