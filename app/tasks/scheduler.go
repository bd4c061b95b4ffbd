package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"newshub/app/cfg"
	"newshub/app/news"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// minPrefetchInterval is a hard floor so a misconfigured interval cannot
// turn the prefetcher into a crawl loop.
const minPrefetchInterval = 10 * time.Second

// Scheduler runs background work on a fixed pool of workers: a periodic
// list refresh and a periodic thumbnail prefetch pass. Failed tasks retry
// with capped exponential backoff; only Stop terminates the loop.
type Scheduler struct {
	aggregator          *news.Aggregator
	enricher            *news.Enricher
	store               news.NewsStore
	refreshInterval     time.Duration
	prefetchInterval    time.Duration
	prefetchLimit       int
	prefetchConcurrency int
	prefetchTimeout     time.Duration
	workerCount         int
	ctx                 context.Context
	cancel              context.CancelFunc
	wg                  sync.WaitGroup
	taskQueue           chan TaskInterface
}

func NewScheduler(aggregator *news.Aggregator, enricher *news.Enricher, store news.NewsStore) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	prefetchInterval := time.Duration(cfg.PrefetchInterval) * time.Second
	if prefetchInterval < minPrefetchInterval {
		prefetchInterval = minPrefetchInterval
	}

	return &Scheduler{
		aggregator:          aggregator,
		enricher:            enricher,
		store:               store,
		refreshInterval:     time.Duration(cfg.RefreshInterval) * time.Second,
		prefetchInterval:    prefetchInterval,
		prefetchLimit:       cfg.PrefetchLimit,
		prefetchConcurrency: cfg.PrefetchConcurrency,
		prefetchTimeout:     time.Duration(cfg.PrefetchTimeout) * time.Second,
		workerCount:         cfg.WorkerCount,
		ctx:                 ctx,
		cancel:              cancel,
		taskQueue:           make(chan TaskInterface, 100),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		refreshTicker := time.NewTicker(s.refreshInterval)
		defer refreshTicker.Stop()
		prefetchTicker := time.NewTicker(s.prefetchInterval)
		defer prefetchTicker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-refreshTicker.C:
				s.enqueue(NewRefreshNewsTask(s.aggregator))
			case <-prefetchTicker.C:
				s.enqueue(NewPrefetchThumbnailsTask(s.aggregator, s.enricher, s.store, s.prefetchLimit, s.prefetchConcurrency, s.prefetchTimeout))
			}
		}
	}()
}

// Stop cancels the scheduler context and waits for the workers, the ticker
// loop and any pending retry goroutines. The queue is never closed; a send
// racing a late retry against shutdown must not panic, and workers drain
// via the context instead.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	s.enqueue(NewRefreshNewsTask(s.aggregator))
	s.enqueue(NewPrefetchThumbnailsTask(s.aggregator, s.enricher, s.store, s.prefetchLimit, s.prefetchConcurrency, s.prefetchTimeout))
}

func (s *Scheduler) enqueue(task TaskInterface) {
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue task", "type", string(task.GetType()), "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			// The retry goroutine joins the WaitGroup so Stop cannot
			// close the queue while a re-enqueue is still in flight.
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()

				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-time.After(retryDelay):
				}

				if retryErr := s.EnqueueTask(task); retryErr != nil {
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
