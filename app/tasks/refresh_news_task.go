package tasks

import (
	"context"
	"log/slog"

	"newshub/app/news"
)

// RefreshNewsTask runs one aggregation pass so the list cache is warm before
// a user request has to pay for the refetch. When the cache is still fresh
// the pass is a no-op.
type RefreshNewsTask struct {
	Task
	aggregator *news.Aggregator
}

func NewRefreshNewsTask(aggregator *news.Aggregator) *RefreshNewsTask {
	return &RefreshNewsTask{
		Task:       NewTask(TaskTypeRefreshNews),
		aggregator: aggregator,
	}
}

func (t *RefreshNewsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	items, err := t.aggregator.GetNews(ctx)
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"items", len(items))

	return nil
}
