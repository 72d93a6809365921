// Package scheduler drives the 1Hz update cycle (component G): fetch
// the upstream feed, decode it onto runtime state, run the locator and
// predictor, then publish a snapshot. It is adapted from the poller's
// ticker/overlap-guard/graceful-shutdown shape.
package scheduler

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/maskerade/metrolinkTimes/internal/alias"
	"github.com/maskerade/metrolinkTimes/internal/decode"
	"github.com/maskerade/metrolinkTimes/internal/feed"
	"github.com/maskerade/metrolinkTimes/internal/learn"
	"github.com/maskerade/metrolinkTimes/internal/locate"
	"github.com/maskerade/metrolinkTimes/internal/network"
	"github.com/maskerade/metrolinkTimes/internal/predict"
	"github.com/maskerade/metrolinkTimes/internal/snapshot"
	"github.com/maskerade/metrolinkTimes/internal/state"
)

// Scheduler owns the process's single writer path: one tick at a
// time, fetch -> decode -> locate -> predict -> publish.
type Scheduler struct {
	graph     *network.Graph
	aliases   *alias.Table
	store     *state.Store
	samples   *learn.Store
	publisher *snapshot.Publisher
	client    *feed.Client

	interval       time.Duration
	retentionFloor time.Duration

	// tickRunning guards against a slow tick (e.g. an upstream hang)
	// overlapping with the next ticker fire, the same single-flight
	// idiom the poller uses for its cleanup pass.
	tickRunning atomic.Bool
}

// New builds a Scheduler. publisher must already exist; its first
// Publish happens on the Scheduler's first successful tick.
// retentionFloor is the configured lower bound the locator's 4.E.4
// phase applies on top of the learned-transit heuristic.
func New(g *network.Graph, aliases *alias.Table, store *state.Store, samples *learn.Store, publisher *snapshot.Publisher, client *feed.Client, interval, retentionFloor time.Duration) *Scheduler {
	return &Scheduler{
		graph:          g,
		aliases:        aliases,
		store:          store,
		samples:        samples,
		publisher:      publisher,
		client:         client,
		interval:       interval,
		retentionFloor: retentionFloor,
	}
}

// Run blocks, ticking every interval until ctx is cancelled. A tick
// that is still running when the next one fires is skipped rather
// than queued, so the update cycle never falls into a backlog.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.tickRunning.CompareAndSwap(false, true) {
		log.Println("scheduler: previous tick still running, skipping this fire")
		return
	}
	defer s.tickRunning.Store(false)

	snap, err := s.client.Fetch(ctx)
	if err != nil {
		log.Printf("scheduler: feed fetch failed: %v", err)
		return
	}

	results, err := decode.Apply(ctx, s.graph, s.aliases, s.store, snap)
	if err != nil {
		log.Printf("scheduler: decode failed: %v", err)
		return
	}
	applied := 0
	for _, r := range results {
		if r.Applied {
			applied++
		}
	}

	locate.Run(s.graph, s.store, s.samples, s.retentionFloor)
	predict.Run(s.graph, s.store, s.samples)

	s.publisher.Publish(s.graph, s.store, s.samples, snap.FetchedAt)
	log.Printf("scheduler: tick complete, %d/%d records applied", applied, len(results))
}
