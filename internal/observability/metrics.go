package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// MediaUploads counts attachment uploads by outcome (success/failure).
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "myfeed_media_uploads_total",
		Help: "Total number of media store uploads by outcome",
	}, []string{"outcome"})

	// MediaCleanups counts remote media deletions by outcome.
	MediaCleanups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "myfeed_media_cleanups_total",
		Help: "Total number of remote media deletions by outcome",
	}, []string{"outcome"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "myfeed_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "myfeed_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// MailDeliveries counts verification mail sends by outcome.
	MailDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "myfeed_mail_deliveries_total",
		Help: "Total number of mail deliveries by outcome",
	}, []string{"outcome"})
)

type gormStartKey struct{}

// InstrumentGorm registers callbacks that record per-query latency into
// DatabaseQueryLatency, labeled by operation and table.
func InstrumentGorm(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.Statement.Context = context.WithValue(tx.Statement.Context, gormStartKey{}, time.Now())
	}
	after := func(operation string) func(tx *gorm.DB) {
		return func(tx *gorm.DB) {
			start, ok := tx.Statement.Context.Value(gormStartKey{}).(time.Time)
			if !ok {
				return
			}
			DatabaseQueryLatency.
				WithLabelValues(operation, tx.Statement.Table).
				Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	registrations := []struct {
		op            string
		before, after func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
	}
	for _, r := range registrations {
		if err := r.before("metrics:before_"+r.op, before); err != nil {
			return err
		}
		if err := r.after("metrics:after_"+r.op, after(r.op)); err != nil {
			return err
		}
	}
	return nil
}
