package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/NASA-AMMOS/aerie-sub006/internal/app"
	"github.com/NASA-AMMOS/aerie-sub006/internal/cli"
)

// main is the entrypoint for the seqgen application.
func main() {
	// Minimal logger until the configured one takes over.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run holds the actual logic so errors and exit codes stay testable.
func run(outW io.Writer, args []string) error {
	cfg, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	a, err := app.NewApp(outW, *cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return a.Run(context.Background())
}
