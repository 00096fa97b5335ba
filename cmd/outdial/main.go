package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	bridge "github.com/voicebridge/twilio-realtime"
	"github.com/voicebridge/twilio-realtime/config"
	"github.com/voicebridge/twilio-realtime/metrics"
	"github.com/voicebridge/twilio-realtime/shared"
	"github.com/voicebridge/twilio-realtime/twilio"
	"go.uber.org/zap"
)

// Log file configuration
const (
	logFileMaxSize    int  = 10 // MB
	logFileMaxBackups int  = 2
	logFileMaxAge     int  = 3 // days
	logFileCompress   bool = false
)

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	to := flag.String("to", "", "destination phone number to call (E.164)")
	flag.Parse()
	if *to == "" {
		fmt.Fprintln(os.Stderr, "missing required -to flag")
		flag.Usage()
		return 1
	}

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		return 1
	}

	var logger shared.LoggerAdapter
	if cfg.LogFile != "" {
		logger = shared.NewFileLogger(cfg.LogFile, logFileMaxSize, logFileMaxBackups, logFileMaxAge, logFileCompress)
	} else {
		logger = shared.NewStdLogger()
	}
	logger = logger.With(
		zap.String("component", "outdial"),
		zap.String("version", shared.Version),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Provider client and the components it is injected into.
	client, err := twilio.NewClient(logger, cfg.AccountSID, cfg.AuthToken, "")
	if err != nil {
		logger.Error("creating provider client", err)
		return 1
	}
	gate, err := twilio.NewGate(logger, client, cfg.AllowedNumbers)
	if err != nil {
		logger.Error("creating eligibility gate", err)
		return 1
	}
	initiator, err := twilio.NewInitiator(logger, gate, client, cfg.FromNumber, cfg.PublicDomain)
	if err != nil {
		logger.Error("creating call initiator", err)
		return 1
	}

	// The bridge and its server.
	mets := metrics.New(prometheus.DefaultRegisterer)
	dialer, err := bridge.NewRealtimeDialer(logger, cfg.OpenAIKey, "")
	if err != nil {
		logger.Error("creating realtime dialer", err)
		return 1
	}
	coord, err := bridge.NewCoordinator(logger, cfg.Session, cfg.Greeting)
	if err != nil {
		logger.Error("creating session coordinator", err)
		return 1
	}
	b, err := bridge.New(logger, dialer, coord, mets)
	if err != nil {
		logger.Error("creating stream bridge", err)
		return 1
	}
	srv, err := bridge.NewServer(logger, b, prometheus.DefaultGatherer, fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		logger.Error("creating server", err)
		return 1
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	// The stream endpoint must be listening before the provider is told to
	// connect to it.
	result, err := initiator.Place(ctx, *to)
	if err != nil {
		logger.Error("call attempt failed", err, zap.String("outcome", result.Outcome.String()))
	}
	switch result.Outcome {
	case twilio.OutcomeRejected:
		mets.CallsRejected.Inc()
		logger.Warn("destination rejected, not placing call",
			zap.String("to", *to),
			zap.String("reason", result.Reason),
		)
		return 1
	case twilio.OutcomeFailed:
		// No retry; keep serving in case the provider connects anyway.
		logger.Warn("call placement failed", zap.String("reason", result.Reason))
	case twilio.OutcomePlaced:
		mets.CallsPlaced.Inc()
		logger.Info("call placed, serving media stream", zap.String("callSid", result.CallSID))
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("server stopped", err)
			return 1
		}
		return 0
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown", err)
			return 1
		}
		return 0
	}
}
