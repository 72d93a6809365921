package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maskerade/metrolinkTimes/internal/alias"
	"github.com/maskerade/metrolinkTimes/internal/api"
	"github.com/maskerade/metrolinkTimes/internal/config"
	"github.com/maskerade/metrolinkTimes/internal/feed"
	"github.com/maskerade/metrolinkTimes/internal/graphdb"
	"github.com/maskerade/metrolinkTimes/internal/learn"
	"github.com/maskerade/metrolinkTimes/internal/network"
	"github.com/maskerade/metrolinkTimes/internal/scheduler"
	"github.com/maskerade/metrolinkTimes/internal/snapshot"
	"github.com/maskerade/metrolinkTimes/internal/state"
)

func main() {
	log.Println("Starting Metrolink engine...")

	cfg := config.Load()
	log.Printf("Config loaded: tick=%v, retention=%v", cfg.TickInterval, cfg.DepartedRetention)

	// ═══════════════════════════════════════════════════════
	// PHASE 1: Load the static platform graph
	// ═══════════════════════════════════════════════════════
	gdb, err := graphdb.Open(cfg.GraphDatabasePath)
	if err != nil {
		log.Fatalf("Failed to open graph database: %v", err)
	}
	defer gdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	desc, err := gdb.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load graph description: %v", err)
	}
	graph, err := network.Build(desc)
	if err != nil {
		log.Fatalf("Failed to build platform graph: %v", err)
	}
	log.Printf("Graph loaded: %d platforms", len(graph.Nodes()))

	// ═══════════════════════════════════════════════════════
	// PHASE 2: Build runtime state and the shared snapshot
	// ═══════════════════════════════════════════════════════
	store := state.NewStore(graph)
	samples := learn.New(cfg.DwellSampleCap, cfg.TransitSampleCap)
	publisher := snapshot.NewPublisher()
	aliases := alias.Default()
	client := feed.NewClient(cfg.FeedURL, cfg.FeedSubscriptionKey, cfg.FeedTimeout)

	// ═══════════════════════════════════════════════════════
	// PHASE 3: Start the update cycle
	// ═══════════════════════════════════════════════════════
	sched := scheduler.New(graph, aliases, store, samples, publisher, client, cfg.TickInterval, cfg.DepartedRetention)
	if cfg.PollingEnabled {
		go sched.Run(ctx)
		log.Printf("Scheduler running (tick every %v)", cfg.TickInterval)
	} else {
		log.Println("Polling disabled (POLLING_ENABLED=false); serving an empty snapshot")
		publisher.Publish(graph, store, samples, time.Now().UTC())
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 4: Serve the read-only HTTP API
	// ═══════════════════════════════════════════════════════
	handler := api.NewHandler(publisher, 30, cfg.CORSOrigin)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Router(),
	}
	go func() {
		log.Printf("API listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	// ═══════════════════════════════════════════════════════
	// PHASE 5: Graceful shutdown
	// ═══════════════════════════════════════════════════════
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("API server shutdown error: %v", err)
	}
	log.Println("Goodbye!")
}
