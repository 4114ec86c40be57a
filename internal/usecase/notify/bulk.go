package notify

import (
	"context"

	"golang.org/x/sync/errgroup"

	"research-notify/internal/domain/entity"
)

// BulkResult is the outcome of one request in a bulk call.
// Exactly one of Notification and Err is set.
type BulkResult struct {
	Index        int
	Notification *entity.Notification
	Err          error
}

// ScheduleBulkNotifications implements Service.ScheduleBulkNotifications.
// A failing request never prevents the others from being scheduled.
func (e *Engine) ScheduleBulkNotifications(ctx context.Context, reqs []Request) []BulkResult {
	results := make([]BulkResult, len(reqs))

	var g errgroup.Group
	g.SetLimit(e.bulkConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			n, err := e.ScheduleNotification(ctx, req)
			results[i] = BulkResult{Index: i, Notification: n, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Failed returns the results that carry an error.
func Failed(results []BulkResult) []BulkResult {
	var failed []BulkResult
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
