package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"tillledger/internal/app"
	"tillledger/internal/config"
	"tillledger/internal/logging"
	"tillledger/internal/scheduler"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	a, err := app.Open(startCtx, cfg, log)
	startCancel()
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}

	runnerOpts := scheduler.Options{
		Interval: cfg.RolloverInterval,
		Location: cfg.Location,
		Logger:   log,
	}
	if a.Redis != nil {
		runnerOpts.Locker = scheduler.NewRedisLocker(a.Redis.Client(), scheduler.DefaultLockKey, rolloverLockTTL(cfg.RolloverInterval))
	}
	runner := scheduler.New(a.Service.Closings, runnerOpts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Run(ctx)
	}()
	log.WithField("location", cfg.Location.String()).WithField("interval", cfg.RolloverInterval.String()).Info("till ledger running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	select {
	case <-done:
	case <-time.After(8 * time.Second):
		log.Warn("rollover check did not finish before shutdown")
	}

	if err := a.Close(); err != nil {
		log.WithError(err).Warn("shutdown incomplete")
	}
	log.Info("till ledger stopped")
}

// rolloverLockTTL outlives one check but expires well before the next
// tick, so a crashed holder never blocks the following check.
func rolloverLockTTL(interval time.Duration) time.Duration {
	ttl := interval / 2
	if ttl < 5*time.Second {
		ttl = 5 * time.Second
	}
	return ttl
}
