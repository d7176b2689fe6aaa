package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	appkafka "example.com/sqliteblog/internal/broker"
	"example.com/sqliteblog/internal/logger"
	"example.com/sqliteblog/internal/store"
)

var logg = logger.New()

// EventHandler processes one decoded post event.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev appkafka.PostEvent) error
}

// ActivityLog writes one log line per post event, resolving the post's author from the
// store while the post still exists.
type ActivityLog struct {
	Store store.StoreInterface
}

func (a ActivityLog) HandleEvent(ctx context.Context, ev appkafka.PostEvent) error {
	msg := fmt.Sprintf("%s post=%d author_id=%d", ev.Type, ev.PostID, ev.AuthorID)
	if ev.Type != appkafka.PostDeleted {
		p, err := a.Store.GetPost(ctx, ev.PostID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			msg += " (post no longer exists)"
		case err != nil:
			return fmt.Errorf("resolve post %d: %w", ev.PostID, err)
		default:
			msg += fmt.Sprintf(" title=%q by %s", p.Title, p.Username)
		}
	}
	logg.Info("activity", msg)
	return nil
}

// Worker consumes post events from Kafka and hands them to a handler concurrently.
type Worker struct {
	store        store.StoreInterface
	reader       appkafka.KafkaReader
	handler      EventHandler
	workerCount  int
	jobQueueSize int
}

// New creates a new concurrent Worker using pre-initialized dependencies. A nil handler
// defaults to ActivityLog on the store.
func New(st store.StoreInterface, reader appkafka.KafkaReader, handler EventHandler, workerCount, jobQueueSize int) *Worker {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if jobQueueSize <= 0 {
		jobQueueSize = workerCount * 10
	}
	if handler == nil {
		handler = ActivityLog{Store: st}
	}
	return &Worker{
		store:        st,
		reader:       reader,
		handler:      handler,
		workerCount:  workerCount,
		jobQueueSize: jobQueueSize,
	}
}

// Run starts message reading and concurrent processing.
func (w *Worker) Run(ctx context.Context) {
	if w.workerCount <= 0 {
		w.workerCount = 1
	}
	if w.jobQueueSize <= 0 {
		w.jobQueueSize = 10
	}
	if w.handler == nil {
		w.handler = ActivityLog{Store: w.store}
	}

	logg.Info("worker", "Starting "+fmt.Sprint(w.workerCount)+" workers with queue size "+fmt.Sprint(w.jobQueueSize))

	jobs := make(chan []byte, w.jobQueueSize)
	var wg sync.WaitGroup

	for i := 0; i < w.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.processLoop(ctx, jobs)
		}()
	}

	w.readLoop(ctx, jobs)

	close(jobs)
	wg.Wait()
	logg.Info("worker", "All workers stopped gracefully")
}

// readLoop reads Kafka messages and pushes them into a job queue.
func (w *Worker) readLoop(ctx context.Context, jobs chan<- []byte) {
	var retry int
	for {
		select {
		case <-ctx.Done():
			return
		default:
			msg, err := w.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				backoff := time.Duration(math.Min(1000, math.Pow(2, float64(retry)))) * time.Millisecond
				logg.Error("worker", "Kafka read error, backing off", err)
				if !waitWithContext(ctx, backoff) {
					return
				}
				retry++
				continue
			}
			retry = 0

			if len(msg.Value) == 0 {
				if !waitWithContext(ctx, 50*time.Millisecond) {
					return
				}
				continue
			}

			select {
			case jobs <- msg.Value:
			case <-ctx.Done():
				return
			}
		}
	}
}

// processLoop decodes events and runs the handler until the queue closes. Queued
// events are drained even after ctx is canceled.
func (w *Worker) processLoop(ctx context.Context, jobs <-chan []byte) {
	for data := range jobs {
		if err := w.process(ctx, data); err != nil {
			logg.Error("worker", "Failed to process post event", err)
		}
	}
}

func (w *Worker) process(ctx context.Context, data []byte) error {
	ev, err := appkafka.DecodePostEvent(data)
	if err != nil {
		return err
	}
	return w.handler.HandleEvent(ctx, ev)
}

// waitWithContext waits for duration or context cancellation.
func waitWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Close shuts down the Kafka reader. The store belongs to the caller.
func (w *Worker) Close() error {
	logg.Info("worker", "Closing Kafka reader")
	if err := w.reader.Close(); err != nil {
		logg.Error("worker", "Error closing Kafka reader", err)
		return err
	}
	return nil
}
