package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hostprep/hostprep/cmd/hostprep/commands"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Cancel the run context on interrupt so the pipeline can wind
	// down and still persist its report.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn().Msg("Received interrupt signal, finishing up...")
		cancel()
	}()

	err := commands.Execute(ctx, Version, Commit, BuildDate)
	switch {
	case err == nil:
	case errors.Is(err, commands.ErrCompletedWithFailures):
		os.Exit(2)
	default:
		log.Error().Err(err).Msg("Command execution failed")
		os.Exit(1)
	}
}
