package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
)

// WriterConfig configures an OccupancyWriter.
type WriterConfig struct {
	Clock         quartz.Clock
	RetryInterval time.Duration
	Timeout       time.Duration
	// OnError is called for every failed write, after it is logged.
	OnError func(tableID int, err error)
}

// OccupancyWriter coalesces occupancy updates from all tables and writes
// the latest count for each table in the background. Failed writes are kept
// and retried on the next tick unless a newer count arrives first.
type OccupancyWriter struct {
	store  Store
	cfg    WriterConfig
	logger zerolog.Logger

	mu       sync.Mutex
	pending  map[int]int
	flushMu  sync.Mutex
	flushReq chan struct{}
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewOccupancyWriter creates and starts a writer for s.
func NewOccupancyWriter(s Store, logger zerolog.Logger, cfg WriterConfig) *OccupancyWriter {
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	w := &OccupancyWriter{
		store:    s,
		cfg:      cfg,
		logger:   logger.With().Str("component", "occupancy_writer").Logger(),
		pending:  make(map[int]int),
		flushReq: make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	// Created before the loop starts so mock clocks see it immediately
	ticker := cfg.Clock.NewTicker(cfg.RetryInterval, "occupancy", "retry")
	w.wg.Add(1)
	go w.run(ticker)
	return w
}

// Record queues the player count of a table. It never blocks.
func (w *OccupancyWriter) Record(tableID, players int) {
	w.mu.Lock()
	w.pending[tableID] = players
	w.mu.Unlock()

	select {
	case w.flushReq <- struct{}{}:
	default:
	}
}

// Flush writes everything queued so far and returns the first error.
func (w *OccupancyWriter) Flush(ctx context.Context) error {
	return w.flushAll(ctx)
}

// Shutdown stops the background loop and makes a final flush attempt.
func (w *OccupancyWriter) Shutdown() {
	close(w.stop)
	w.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout)
	defer cancel()
	if err := w.flushAll(ctx); err != nil {
		w.logger.Error().Err(err).Msg("occupancy flush on shutdown failed")
	}
}

func (w *OccupancyWriter) run(ticker *quartz.Ticker) {
	defer w.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flushWithTimeout()
		case <-w.flushReq:
			w.flushWithTimeout()
		case <-w.stop:
			return
		}
	}
}

func (w *OccupancyWriter) flushWithTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout)
	defer cancel()
	_ = w.flushAll(ctx)
}

func (w *OccupancyWriter) flushAll(ctx context.Context) error {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[int]int)
	w.mu.Unlock()

	var first error
	for id, players := range batch {
		err := w.store.SetOccupancy(ctx, id, players)
		if err == nil {
			continue
		}
		if first == nil {
			first = err
		}
		w.logger.Error().Err(err).Int("table_id", id).Int("players", players).Msg("occupancy write failed")
		if w.cfg.OnError != nil {
			w.cfg.OnError(id, err)
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		w.mu.Lock()
		if _, newer := w.pending[id]; !newer {
			w.pending[id] = players
		}
		w.mu.Unlock()
	}
	return first
}
