package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"agent-core/internal/api"
	"agent-core/internal/engine"
	"agent-core/internal/events"
	"agent-core/internal/monitor"
	"agent-core/internal/persistence"
	"agent-core/internal/risk"
	"agent-core/internal/strategy"
	"agent-core/internal/telemetry"
	"agent-core/pkg/cache"
	"agent-core/pkg/config"
	"agent-core/pkg/db"
	"agent-core/pkg/exchange/aster"
	"agent-core/pkg/market"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := db.InitSchema(database.DB); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Telemetry pipeline: sink -> bus -> recorder -> batch writer -> sqlite.
	bus := events.NewBus()
	writer := persistence.NewBatchWriter(database.DB, 50, 500*time.Millisecond)
	defer writer.Close()
	recorder := telemetry.NewRecorder(bus, writer)
	sink := telemetry.NewSink(bus)

	// Shared price plumbing: websocket stream warms the cache, REST fills
	// the misses.
	prices := cache.New(time.Duration(cfg.PriceTTLSeconds * float64(time.Second)))
	source := market.NewSource(prices)
	stream := market.NewStream(cfg.Symbols(), prices)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recorder.Run(ctx)
		return nil
	})
	g.Go(func() error {
		stream.Run(ctx)
		return nil
	})
	g.Go(func() error {
		monitor.New(bus, writer, prices).Run(ctx)
		return nil
	})

	server := api.NewServer(db.NewQueries(database.DB), prices, cfg.Agents)
	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: server.Router}
	g.Go(func() error {
		log.Printf("status api listening on %s", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	// One runner per agent; each owns its strategy and risk manager.
	for _, agent := range cfg.Agents {
		strat, err := strategy.New(agent.ID, agent.Strategy, agent.Symbol, agent.Params)
		if err != nil {
			return err
		}
		client := aster.NewClient(aster.Config{
			APIKey:    agent.APIKey,
			APISecret: agent.APISecret,
			BaseURL:   cfg.ExchangeBaseURL,
		})
		runner := engine.NewRunner(agent, client, source, strat, risk.NewManager(risk.DefaultConfig()), sink)
		g.Go(func() error {
			err := runner.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	log.Printf("engine started with %d agents", len(cfg.Agents))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Printf("shutdown complete")
	return nil
}
