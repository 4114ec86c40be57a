// Package metrics holds the process-level Prometheus metrics shared by the
// worker's infrastructure: database query timing, connection pool usage and
// requests served by the operational HTTP endpoints.
//
// Delivery metrics live next to the engine in usecase/notify.
//
// Example usage:
//
//	start := time.Now()
//	rows, err := db.QueryContext(ctx, query, args...)
//	metrics.RecordDBQuery(metrics.QueryOperation(query), time.Since(start))
//
//	go metrics.CollectDBStats(ctx, database, 15*time.Second)
package metrics
