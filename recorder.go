package main

import (
	"log/slog"
	"sync"
	"time"
)

const (
	recorderBuffer   = 1024
	recorderBatch    = 50
	recorderInterval = 5 * time.Second
)

// MatchResult is one finished match in the ledger
type MatchResult struct {
	Room      string    `json:"room"`
	Private   bool      `json:"private"`
	Top       int       `json:"top"`
	Bottom    int       `json:"bottom"`
	Reason    string    `json:"reason"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// MatchSink receives finished matches. Record must not block; it is
// called from room goroutines.
type MatchSink interface {
	Record(m MatchResult)
}

type sinkList []MatchSink

func (l sinkList) Record(m MatchResult) {
	for _, s := range l {
		s.Record(m)
	}
}

// MatchSinks fans a result out to every non-nil sink
func MatchSinks(sinks ...MatchSink) MatchSink {
	l := make(sinkList, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			l = append(l, s)
		}
	}
	return l
}

// Recorder persists match results with batched background writes
type Recorder struct {
	db       *DB
	results  chan MatchResult
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	log      *slog.Logger

	mu      sync.Mutex
	dropped int
	written int
}

// NewRecorder creates and starts the background writer. A nil db makes
// every Record a no-op.
func NewRecorder(db *DB, logger *slog.Logger) *Recorder {
	r := &Recorder{
		db:      db,
		results: make(chan MatchResult, recorderBuffer),
		stop:    make(chan struct{}),
		log:     logger.With("component", "recorder"),
	}
	r.wg.Add(1)
	go r.writer()
	return r
}

// Record enqueues a result for persistence (non-blocking)
func (r *Recorder) Record(m MatchResult) {
	if r.db == nil {
		return
	}
	select {
	case r.results <- m:
	default:
		// Queue full; drop rather than stall the room
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
	}
}

// Counts returns how many results were written and dropped so far
func (r *Recorder) Counts() (written, dropped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written, r.dropped
}

// Stop flushes whatever is queued and shuts down the writer
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()
}

func (r *Recorder) writer() {
	defer r.wg.Done()

	batch := make([]MatchResult, 0, recorderBatch)
	ticker := time.NewTicker(recorderInterval)
	defer ticker.Stop()

	for {
		select {
		case m := <-r.results:
			batch = append(batch, m)
			if len(batch) >= recorderBatch {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-r.stop:
			for {
				select {
				case m := <-r.results:
					batch = append(batch, m)
				default:
					r.flush(batch)
					return
				}
			}
		}
	}
}

func (r *Recorder) flush(batch []MatchResult) {
	if r.db == nil || len(batch) == 0 {
		return
	}
	if err := r.db.InsertMatches(batch); err != nil {
		r.log.Error("flush failed", "count", len(batch), "err", err)
		return
	}
	r.mu.Lock()
	r.written += len(batch)
	r.mu.Unlock()
	r.log.Debug("flushed matches", "count", len(batch))
}
