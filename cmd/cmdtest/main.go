package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dcu/scmd-soapclient/internal/cli"
	"github.com/dcu/scmd-soapclient/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// main is the entrypoint of the CMD test client.
func main() {
	// The real main function handles errors and exit codes.
	if err := run(context.Background(), os.Stdin, os.Stdout, os.Stderr, os.Args[1:], os.LookupEnv); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string, debug bool, errW io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: errW, NoColor: true}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, in io.Reader, outW, errW io.Writer, args []string, lookup func(string) (string, bool)) error {
	inv, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	path := inv.ConfigPath
	if path == "" {
		path, _ = lookup(config.EnvConfigPath)
	}

	cfg, err := config.Load(path, lookup)
	if err != nil {
		return err
	}

	if err := inv.Apply(cfg); err != nil {
		return err
	}

	if inv.Command.RequiresApplicationID() && errors.Is(cfg.Validate(), config.ErrMissingApplicationID) {
		return &cli.ExitError{Code: 1, Message: "Configure o APPLICATION_ID"}
	}

	logger := newLogger(cfg.LogLevel, inv.Debug, errW)

	dispatcher := cli.NewDispatcher(outW, cli.NewLinePrompter(in, outW), logger, nil)
	if err := dispatcher.Dispatch(ctx, inv, cfg); err != nil {
		logger.Error().Err(err).Str("command", inv.Command.Name).Msg("Command failed")
		return err
	}

	return nil
}
