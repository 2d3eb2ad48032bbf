// Package scheduler runs the two background goroutines that drive the live
// auction:
//  1. tickLoop            – closes bidding once the countdown runs out.
//  2. statusBroadcastLoop – pushes the current countdown to WS clients.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/fantaasta/auction/internal/config"
)

// ──────────────────────────────────────────────────────────────────────────────
// Auction interface: minimally required from the AuctionService
// ──────────────────────────────────────────────────────────────────────────────

// Auction defines the operations the Scheduler needs from the auction core.
// Implemented by service.AuctionService.
type Auction interface {
	Tick() bool
	PublishStatus()
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler runs the auction's periodic work.  Call Start(ctx) once from
// main(); cancel the context to shut it down.
type Scheduler struct {
	auction      Auction
	tickInterval time.Duration
	pushInterval time.Duration
	logger       *slog.Logger

	done chan struct{}
}

// NewScheduler creates a Scheduler.
func NewScheduler(auction Auction, cfg *config.Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		auction:      auction,
		tickInterval: cfg.Auction.TickInterval,
		pushInterval: cfg.Auction.StatusPushInterval,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// Start launches the background goroutines.  It returns immediately; the
// loops run until ctx is cancelled, after which Done is closed.
func (s *Scheduler) Start(ctx context.Context) {
	finished := make(chan struct{}, 2)
	go func() {
		s.tickLoop(ctx)
		finished <- struct{}{}
	}()
	go func() {
		s.statusBroadcastLoop(ctx)
		finished <- struct{}{}
	}()
	go func() {
		<-finished
		<-finished
		close(s.done)
	}()
	s.logger.Info("scheduler started",
		"tick_interval", s.tickInterval, "push_interval", s.pushInterval)
}

// Done is closed once every loop has returned.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

// ──────────────────────────────────────────────────────────────────────────────
// tickLoop
// ──────────────────────────────────────────────────────────────────────────────

// tickLoop evaluates the deadline every tickInterval.  The interval bounds how
// late an expiry is noticed.
func (s *Scheduler) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("tickLoop: shutting down")
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick is the inner body of tickLoop, extracted so that the defer/recover
// catches a panic without ending the loop.
func (s *Scheduler) tick() {
	defer s.recoverAndLog("tickLoop")
	if s.auction.Tick() {
		s.logger.Debug("tickLoop: countdown expired")
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// statusBroadcastLoop
// ──────────────────────────────────────────────────────────────────────────────

// statusBroadcastLoop pushes the live status every pushInterval so clients
// can render the countdown without polling.
func (s *Scheduler) statusBroadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("statusBroadcastLoop: shutting down")
			return
		case <-ticker.C:
			s.pushStatus()
		}
	}
}

func (s *Scheduler) pushStatus() {
	defer s.recoverAndLog("statusBroadcastLoop")
	s.auction.PublishStatus()
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each iteration to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
