// Package reaper implements SparkQ's two background workers: auto-fail
// (stale running tasks) and purge (retention for terminal tasks). Both
// follow the stop-channel + WaitGroup + ticker shape the teacher uses for
// its own periodic workers (internal/backup.BackupScheduler,
// internal/ai/queue.Queue.Start/Stop).
package reaper

import (
	"log"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/atomic"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/metrics"
	"github.com/lucebryan3000/sparkq-poc-sub002/internal/store"
)

// AutoFail periodically fails running tasks that have exceeded
// 2x their timeout (spec §4.3).
type AutoFail struct {
	Store    *store.Store
	Interval time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	ticking atomic.Bool // guards against a slow tick overlapping the next
}

// NewAutoFail builds an AutoFail reaper with a default 30s interval if
// interval is zero (spec §4.3 default).
func NewAutoFail(s *store.Store, interval time.Duration) *AutoFail {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &AutoFail{Store: s, Interval: interval, stopCh: make(chan struct{})}
}

// Start launches the background ticker loop.
func (a *AutoFail) Start() {
	a.wg.Add(1)
	go a.run()
	log.Printf("reaper: auto-fail started, interval=%s", a.Interval)
}

// Stop signals the loop to exit and waits for the in-flight tick, if any,
// to finish — never interrupting mid-batch.
func (a *AutoFail) Stop() {
	close(a.stopCh)
	a.wg.Wait()
	log.Println("reaper: auto-fail stopped")
}

func (a *AutoFail) run() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			if !a.ticking.CompareAndSwap(false, true) {
				log.Println("reaper: auto-fail tick skipped, previous tick still running")
				continue
			}
			err := a.Tick()
			a.ticking.Store(false)
			if err != nil {
				log.Printf("reaper: auto-fail tick error: %v", err)
			}
		}
	}
}

// Tick runs one pass: stamp advisory warnings, then auto-fail anything
// past 2x timeout. Exported so tests can drive it deterministically
// instead of waiting on the ticker.
func (a *AutoFail) Tick() error {
	metrics.ReaperTicks.WithLabelValues("auto_fail").Inc()
	now := time.Now().UTC()

	var result error

	warn, err := a.Store.WarnCandidates(now)
	if err != nil {
		result = multierror.Append(result, err)
	}
	for _, t := range warn {
		if err := a.Store.StampStaleWarning(t.ID, now); err != nil {
			result = multierror.Append(result, err)
		}
	}

	stale, err := a.Store.StaleCandidates(now)
	if err != nil {
		result = multierror.Append(result, err)
		return result
	}
	for _, t := range stale {
		if err := a.Store.AutoFail(t.ID, now); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		metrics.AutoFailTotal.Inc()
	}
	return result
}

// Purge periodically deletes terminal tasks older than the retention
// window (spec §4.3).
type Purge struct {
	Store         *store.Store
	Interval      time.Duration
	RetentionDays int
	ChunkSize     int

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewPurge builds a Purge reaper with defaults matching spec §4.3/§6.2:
// hourly, 3-day retention, 500-row chunks.
func NewPurge(s *store.Store, interval time.Duration, retentionDays, chunkSize int) *Purge {
	if interval <= 0 {
		interval = time.Hour
	}
	if retentionDays <= 0 {
		retentionDays = 3
	}
	if chunkSize <= 0 {
		chunkSize = 500
	}
	return &Purge{Store: s, Interval: interval, RetentionDays: retentionDays, ChunkSize: chunkSize, stopCh: make(chan struct{})}
}

// Start launches the background ticker loop.
func (p *Purge) Start() {
	p.wg.Add(1)
	go p.run()
	log.Printf("reaper: purge started, interval=%s, retention=%dd", p.Interval, p.RetentionDays)
}

// Stop signals the loop to exit and waits for the in-flight batch to finish.
func (p *Purge) Stop() {
	close(p.stopCh)
	p.wg.Wait()
	log.Println("reaper: purge stopped")
}

func (p *Purge) run() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.Tick(); err != nil {
				log.Printf("reaper: purge tick error: %v", err)
			}
		}
	}
}

// Tick deletes terminal tasks older than the retention window, chunked so
// no single call holds the write lock for longer than one batch (spec §4.3).
func (p *Purge) Tick() error {
	metrics.ReaperTicks.WithLabelValues("purge").Inc()
	cutoff := time.Now().UTC().AddDate(0, 0, -p.RetentionDays)

	total := 0
	for {
		select {
		case <-p.stopCh:
			return nil
		default:
		}
		n, err := p.Store.PurgeTerminal(cutoff, p.ChunkSize)
		if err != nil {
			return err
		}
		total += n
		metrics.PurgeDeletedTotal.Add(float64(n))
		if n < p.ChunkSize {
			break
		}
	}
	if total > 0 {
		log.Printf("reaper: purge deleted %d terminal task(s) older than %s", total, cutoff.Format(time.RFC3339))
	}
	return nil
}
