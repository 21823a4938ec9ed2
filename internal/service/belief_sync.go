package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"go.uber.org/zap"
)

const defaultBeliefSyncInterval = 30 * time.Second

// BeliefSyncService persists the belief graph. It loads the graph at startup and flushes
// it to the store from a background worker whenever the graph version moved.
type BeliefSyncService struct {
	graph  *BeliefGraph
	store  domain.BeliefStore
	logger *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu             sync.Mutex
	flushedVersion uint64
}

func NewBeliefSyncService(g *BeliefGraph, store domain.BeliefStore, logger *zap.Logger) *BeliefSyncService {
	return &BeliefSyncService{
		graph:    g,
		store:    store,
		logger:   logger,
		interval: defaultBeliefSyncInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *BeliefSyncService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Load imports persisted beliefs into the graph, seeding core beliefs when the store is
// empty. Malformed persisted data is rejected wholesale.
func (s *BeliefSyncService) Load(ctx context.Context) error {
	records, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list beliefs: %w", err)
	}

	if len(records) == 0 {
		seeded := s.graph.SeedCoreBeliefs()
		s.logger.Info("belief store empty, seeded core beliefs", zap.Int("seeded", seeded))
		_, err := s.Flush(ctx)
		return err
	}

	if err := s.graph.Import(records); err != nil {
		return err
	}

	s.mu.Lock()
	s.flushedVersion = s.graph.Version()
	s.mu.Unlock()

	s.logger.Info("beliefs loaded", zap.Int("count", len(records)))
	return nil
}

// Flush writes the graph if it changed since the last flush. It reports whether a write
// happened.
func (s *BeliefSyncService) Flush(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version := s.graph.Version()
	if version == s.flushedVersion && version != 0 {
		return false, nil
	}

	records := s.graph.Export()
	if err := s.store.ReplaceAll(ctx, records); err != nil {
		return false, fmt.Errorf("replace beliefs: %w", err)
	}
	s.flushedVersion = version

	s.logger.Debug("beliefs flushed",
		zap.Int("count", len(records)),
		zap.Uint64("version", version))
	return true, nil
}

func (s *BeliefSyncService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("belief sync worker started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if _, err := s.Flush(ctx); err != nil {
					s.logger.Error("belief flush failed", zap.Error(err))
				}
				cancel()
			case <-s.stopCh:
				s.logger.Info("belief sync worker stopped")
				return
			}
		}
	}()
}

// Stop halts the worker and performs a final flush. Later calls only flush.
func (s *BeliefSyncService) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	_, err := s.Flush(ctx)
	return err
}
