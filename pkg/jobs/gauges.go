// Package jobs runs periodic background work for the server.
package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/observability"
)

// DefaultSchedule refreshes gauges once a minute
const DefaultSchedule = "@every 1m"

const refreshTimeout = 30 * time.Second

// CountSource provides the totals published as business gauges
type CountSource interface {
	CountUsers(ctx context.Context) (models.UserCounts, error)
	CountPatients(ctx context.Context) (int64, error)
	CountDoctors(ctx context.Context) (int64, error)
	CountMappings(ctx context.Context) (int64, error)
	CountIssues(ctx context.Context, userID *int64) (models.IssueCounts, error)
}

// GaugeRefresher periodically copies store totals into Prometheus gauges
type GaugeRefresher struct {
	source  CountSource
	metrics *observability.Metrics
	db      *sql.DB
	logger  *observability.Logger

	runs metric.Int64Counter
	cron *cron.Cron
}

// NewGaugeRefresher creates a refresher. db is optional and adds pool stats.
func NewGaugeRefresher(source CountSource, metrics *observability.Metrics, db *sql.DB, logger *observability.Logger) (*GaugeRefresher, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	runs, err := otel.Meter("github.com/platinummonkey/carelink/pkg/jobs").Int64Counter(
		"carelink.jobs.gauge_refresh.runs",
		metric.WithDescription("Business gauge refresh runs by result"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge refresh counter: %w", err)
	}

	return &GaugeRefresher{
		source:  source,
		metrics: metrics,
		db:      db,
		logger:  logger.WithField("job", "gauge_refresh"),
		runs:    runs,
	}, nil
}

// Snapshot reads the current totals
func (g *GaugeRefresher) Snapshot(ctx context.Context) (observability.BusinessSnapshot, error) {
	var (
		snap   observability.BusinessSnapshot
		users  models.UserCounts
		issues models.IssueCounts
	)

	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		users, err = g.source.CountUsers(ectx)
		return err
	})
	eg.Go(func() (err error) {
		snap.Patients, err = g.source.CountPatients(ectx)
		return err
	})
	eg.Go(func() (err error) {
		snap.Doctors, err = g.source.CountDoctors(ectx)
		return err
	})
	eg.Go(func() (err error) {
		snap.Mappings, err = g.source.CountMappings(ectx)
		return err
	})
	eg.Go(func() (err error) {
		issues, err = g.source.CountIssues(ectx, nil)
		return err
	})
	if err := eg.Wait(); err != nil {
		return snap, err
	}

	snap.Users = users.Total
	snap.ActiveUsers = users.Active
	snap.PendingIssues = issues.Pending
	return snap, nil
}

// Refresh publishes one snapshot
func (g *GaugeRefresher) Refresh(ctx context.Context) error {
	snap, err := g.Snapshot(ctx)
	if err != nil {
		g.metrics.RecordGaugeRefreshFailure()
		g.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "error")))
		return fmt.Errorf("refresh gauges: %w", err)
	}

	g.metrics.SetBusinessGauges(snap)
	if g.db != nil {
		stats := g.db.Stats()
		g.metrics.SetDBStats(stats.OpenConnections, stats.InUse)
	}
	g.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "ok")))
	return nil
}

// Start refreshes once immediately and then on schedule until Stop is called
func (g *GaugeRefresher) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, g.run)
	if err != nil {
		return fmt.Errorf("failed to schedule gauge refresh: %w", err)
	}

	g.run()
	c.Start()
	g.cron = c
	g.logger.WithField("schedule", schedule).Info("gauge refresh scheduled")
	return nil
}

func (g *GaugeRefresher) run() {
	defer observability.RecoverPanic(g.logger, "gauge refresh")

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := g.Refresh(ctx); err != nil {
		g.logger.WithError(err).Warn("gauge refresh failed")
	}
}

// Stop halts the scheduler and waits for a running refresh to finish
func (g *GaugeRefresher) Stop(ctx context.Context) error {
	if g.cron == nil {
		return nil
	}
	done := g.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
