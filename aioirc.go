// Copyright (c) 2018 Mortal
// released under the MIT license

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt-go"

	aioirc "github.com/Mortal/aio-irc/lib"
	"github.com/Mortal/aio-irc/lib/plugins"
)

func main() {
	usage := `aio-irc, a pluggable Twitch chat client.

Usage:
	aioirc start [--config=<file>] [<channel>...]
	aioirc -h | --help
	aioirc --version

Options:
	--config=<file>  Configuration file [default: twitch.yaml].
	-h --help        Show this screen.
	--version        Show version.`

	arguments, _ := docopt.Parse(usage, nil, true, aioirc.Ver, false)

	if !arguments["start"].(bool) {
		return
	}

	config, err := aioirc.LoadConfig(arguments["--config"].(string))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Config error:", err)
		os.Exit(1)
	}

	// positional channels override the configured list
	if channels, ok := arguments["<channel>"].([]string); ok && len(channels) > 0 {
		config.Channels = nil
		for _, channel := range channels {
			config.Channels = append(config.Channels, "#"+channel)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.SlogLevel(),
	}))

	client := aioirc.NewClient(config, logger)

	// bad plugin names fail here, before any connection attempt
	if err := client.ActivatePlugins(plugins.Builtin()); err != nil {
		fmt.Fprintln(os.Stderr, "Plugin error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	err = client.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("shutting down")
	case err != nil:
		fmt.Fprintln(os.Stderr, "Connection error:", err)
		os.Exit(1)
	}
}
