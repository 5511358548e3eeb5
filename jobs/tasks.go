// Package jobs runs background maintenance over Asynq.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/parley-chat/parley/internal/jobs"
	"github.com/parley-chat/parley/internal/snowflake"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDevicePrune deletes devices that have not been re-minted within the
	// retention window. Device ids are snowflakes, so age lives in the id.
	TaskDevicePrune = "devices:prune"
)

// DevicePrunePayload carries the cutoff for a prune run. A zero cutoff means
// "retention window before processing time", which is what cron-scheduled
// runs use since their payload is frozen at registration.
type DevicePrunePayload struct {
	OlderThan time.Time `json:"older_than"`
}

// NewDevicePruneTask constructs a prune task for devices created before the
// cutoff.
func NewDevicePruneTask(olderThan time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(DevicePrunePayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDevicePrune, body, asynq.Queue(QueueDefault)), nil
}

// DevicePruner deletes stale device rows. Pruning a device revokes every
// token bound to it; retention is sized so only long-idle sessions lapse.
type DevicePruner struct {
	logger    *slog.Logger
	pool      *pgxpool.Pool
	retention time.Duration
	metrics   *jobmetrics.Metrics
}

// NewDevicePruner constructs a DevicePruner.
func NewDevicePruner(logger *slog.Logger, pool *pgxpool.Pool, retention time.Duration, metrics *jobmetrics.Metrics) *DevicePruner {
	return &DevicePruner{logger: logger, pool: pool, retention: retention, metrics: metrics}
}

// Handle processes TaskDevicePrune tasks. The cutoff converts to an id
// threshold, so the delete is a single range scan on the primary key.
func (p *DevicePruner) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := p.metrics.Track(TaskDevicePrune)
	return tracker.End(p.prune(ctx, t))
}

func (p *DevicePruner) prune(ctx context.Context, t *asynq.Task) error {
	var payload DevicePrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.OlderThan.IsZero() {
		payload.OlderThan = time.Now().Add(-p.retention)
	}

	threshold := snowflake.Threshold(payload.OlderThan)
	tag, err := p.pool.Exec(ctx, `DELETE FROM devices WHERE id < $1;`, threshold)
	if err != nil {
		return err
	}
	p.logger.Info("pruned stale devices",
		slog.Int64("deleted", tag.RowsAffected()),
		slog.Time("older_than", payload.OlderThan))
	return nil
}
