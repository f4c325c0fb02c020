package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/poolboard/internal/devupstream"
	"github.com/okian/poolboard/pkg/logger"
)

// Default configuration constants.
const (
	defaultAddr       = ":9081"
	defaultPlayers    = 12
	defaultMatchEvery = 20 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func main() {
	var (
		addr     = flag.String("addr", defaultAddr, "Listen address")
		token    = flag.String("token", "", "Required API token (empty accepts any)")
		players  = flag.Int("players", defaultPlayers, "Roster size")
		every    = flag.Duration("every", defaultMatchEvery, "Interval between simulated matches (0 disables)")
		failRate = flag.Float64("fail", 0, "Fraction of requests answered with 503")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		devupstream.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}
	log := logger.Named("fake-upstream")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &devupstream.Config{
		Addr:       *addr,
		Token:      *token,
		Players:    *players,
		MatchEvery: *every,
		FailRate:   *failRate,
	}
	fake := devupstream.NewServer(cfg, devupstream.Generate(cfg.Players)).WithLogger(log)
	go fake.Drift(ctx, cfg.MatchEvery)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           fake.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		log.Info(ctx, "serving fake players API",
			logger.String("addr", cfg.Addr),
			logger.Int("players", cfg.Players),
			logger.Duration("match_every", cfg.MatchEvery),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "fake players API failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "shutdown failed", logger.Error(err))
	}
}
