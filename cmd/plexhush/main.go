package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"plexhush/internal/config"
	"plexhush/internal/services"
)

// Exit codes, stable for cron and monitoring wrappers.
const (
	exitGeneral        = 1
	exitConfigInvalid  = 2
	exitMissingSetting = 8
	exitConnectivity   = 16
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, config.ErrNotFound):
		return exitGeneral
	case errors.Is(err, config.ErrMissingSetting):
		return exitMissingSetting
	case errors.Is(err, config.ErrInvalid):
		return exitConfigInvalid
	case errors.Is(err, services.ErrRemote), errors.Is(err, services.ErrNotFound):
		return exitConnectivity
	default:
		return exitGeneral
	}
}
