package main

import (
	"context"
	"fmt"
	"github.com/cirruslabs/mocha/internal/command"
	"github.com/cirruslabs/mocha/internal/logginglevel"
	"github.com/cirruslabs/mocha/internal/opentelemetry"
	"go.uber.org/zap"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if !mainImpl() {
		os.Exit(1)
	}
}

func mainImpl() bool {
	// Set up a signal-interruptible context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize logger
	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = logginglevel.Level

	logger, err := loggerConfig.Build()
	if err != nil {
		log.Println(err)

		return false
	}
	defer func() {
		_ = logger.Sync()
	}()

	zap.ReplaceGlobals(logger)

	// Initialize OpenTelemetry
	_, opentelemetryDeinit, err := opentelemetry.Init(ctx)
	if err != nil {
		logger.Sugar().Errorf("failed to initialize OpenTelemetry: %v", err)

		return false
	}
	defer opentelemetryDeinit()

	if err := command.NewRootCommand().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		return false
	}

	return true
}
