// Command bourse runs the interactive order-book REPL: it wires
// configuration, logging, persistence, and the matching engine, then reads
// commands from stdin until QUIT or EOF.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"bourse/internal/book"
	"bourse/internal/config"
	"bourse/internal/dispatch"
	"bourse/internal/matching"
	"bourse/internal/persistence"
	"bourse/internal/validation"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	log.Logger = logger

	rec := newRecorder(ctx, cfg, logger)

	store := book.NewStore()
	engine := matching.New(store, rec, logger)
	defer func() {
		if err := engine.Stop(); err != nil {
			logger.Warn().Err(err).Msg("engine stop")
		}
	}()

	d := dispatch.New(engine, store, validation.New())
	runREPL(ctx, d, cfg.Prompt, os.Stdin, os.Stdout)
}

func newLogger(levelName string) zerolog.Logger {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func newRecorder(ctx context.Context, cfg config.Config, logger zerolog.Logger) persistence.Recorder {
	if !cfg.PersistEnabled {
		return persistence.Noop{}
	}
	m, err := persistence.NewMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Warn().Err(err).Msg("persistence disabled: could not connect to mongo")
		return persistence.Noop{}
	}
	return m
}

// runREPL reads one command per line until EOF, context cancellation, or a
// QUIT command, which clears session state and exits with status 0 per the
// external interface contract.
func runREPL(ctx context.Context, d *dispatch.Dispatcher, prompt string, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return
		}

		res := d.Dispatch(ctx, scanner.Text())
		if res.Quit {
			fmt.Fprintln(out, "goodbye")
			os.Exit(0)
		}
		if res.Success() {
			fmt.Fprint(out, res.Text)
			if res.Text != "" && res.Text[len(res.Text)-1] != '\n' {
				fmt.Fprintln(out)
			}
			continue
		}
		fmt.Fprintf(out, "%s: %v\n", res.Kind, res.Err)
	}
}
