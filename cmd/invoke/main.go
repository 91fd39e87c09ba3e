package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/marcelocantos/invoke/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Stages get interrupts from the terminal; invoke keeps waiting for the
	// last one and launches nothing further.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return cli.Execute(ctx, version, os.Args[1:], cli.IO{
		In:  os.Stdin,
		Out: os.Stdout,
		Err: os.Stderr,
	})
}
