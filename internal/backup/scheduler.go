package backup

import (
	"context"
	"log"
	"sync"
	"time"

	"ppcp-backend/internal/metrics"
)

// Snapshotter produces a snapshot and its file name
type Snapshotter interface {
	Backup(ctx context.Context) ([]byte, string, error)
}

// Uploader stores a snapshot remotely and returns where it went
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

const runTimeout = 5 * time.Minute

// Scheduler uploads a fresh snapshot on a fixed interval
type Scheduler struct {
	source   Snapshotter
	dest     Uploader
	interval time.Duration

	mu     sync.Mutex
	ticker *time.Ticker
	stop   chan struct{}
	done   chan struct{}
}

func NewScheduler(source Snapshotter, dest Uploader, interval time.Duration) *Scheduler {
	return &Scheduler{source: source, dest: dest, interval: interval}
}

// RunOnce takes one snapshot and uploads it
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	data, name, err := s.source.Backup(ctx)
	if err != nil {
		metrics.RemoteBackupsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		log.Printf("[R2 Backup] Failed to create snapshot: %v", err)
		return "", err
	}

	key, err := s.dest.Upload(ctx, name, data)
	if err != nil {
		metrics.RemoteBackupsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		log.Printf("[R2 Backup] Failed to upload: %v", err)
		return "", err
	}

	metrics.RemoteBackupsTotal.WithLabelValues(metrics.ResultOK).Inc()
	log.Printf("[R2 Backup] Success: %s (%d bytes)", key, len(data))
	return key, nil
}

// Start runs a first backup immediately and then one per interval.
// Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil || s.interval <= 0 {
		return
	}

	s.ticker = time.NewTicker(s.interval)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func(ticker *time.Ticker, stop, done chan struct{}) {
		defer close(done)
		log.Println("[R2 Backup] Starting automatic backup scheduler")
		s.runWithTimeout()

		for {
			select {
			case <-ticker.C:
				s.runWithTimeout()
			case <-stop:
				log.Println("[R2 Backup] Scheduler stopped")
				return
			}
		}
	}(s.ticker, s.stop, s.done)

	log.Printf("[R2 Backup] Scheduler started (interval: %v)", s.interval)
}

// Stop halts the scheduler and waits for an in-flight backup to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	<-s.done
	s.ticker = nil
}

func (s *Scheduler) runWithTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	s.RunOnce(ctx)
}
