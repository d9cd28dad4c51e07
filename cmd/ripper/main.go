package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/pflag"

	"github.com/Belphemur/SubtitleRipper/internal/apperrors"
	"github.com/Belphemur/SubtitleRipper/internal/cli"
	"github.com/Belphemur/SubtitleRipper/internal/config"
	"github.com/Belphemur/SubtitleRipper/internal/locale"
)

func main() {
	os.Exit(run())
}

// run is the single exit point: every layer returns errors up to here.
func run() int {
	logger := config.GetLogger()

	opts, err := cli.Parse("ripper", os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return apperrors.ExitOK
	}
	if err != nil {
		logger.Error().Err(err).Msg("Invalid arguments")
		return apperrors.ExitFatal
	}

	cfg, err := config.LoadConfig(opts.Flags)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return apperrors.ExitFatal
	}
	config.Init(cfg)
	logger = config.GetLogger()

	reporting := false
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err != nil {
			logger.Warn().Err(err).Msg("Sentry disabled")
		} else {
			reporting = true
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = cli.NewApp(cfg, logger).Run(ctx, opts)
	code := apperrors.ExitCode(err)
	if err == nil {
		return code
	}

	message := cli.Describe(locale.NewPrinter(cfg.Locale), err)
	switch code {
	case apperrors.ExitOK:
		logger.Info().Msg(message)
	case apperrors.ExitInterrupted:
		logger.Warn().Msg(message)
	default:
		logger.Error().Err(err).Msg(message)
		if reporting {
			sentry.CaptureException(err)
		}
	}
	return code
}
