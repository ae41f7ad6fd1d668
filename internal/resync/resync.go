// internal/resync/resync.go
package resync

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Syncer pulls the authoritative cart and order status from the backend.
// The lifecycle machine implements it.
type Syncer interface {
	SyncFromBackend(ctx context.Context) error
}

// Resyncer periodically reconciles local state against the backend, but
// only while the push channel is down. While push is live the stream is
// authoritative and a poll would be redundant.
type Resyncer struct {
	syncer    Syncer
	connected func() bool
	schedule  string
	cron      *cron.Cron
}

// cronParser accepts standard 5-field cron expressions, an optional
// seconds field, and descriptors like @every 30s.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Resyncer. connected reports push channel liveness.
func New(syncer Syncer, connected func() bool, schedule string) *Resyncer {
	return &Resyncer{
		syncer:    syncer,
		connected: connected,
		schedule:  schedule,
		cron:      cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the reconcile job and starts the cron ticker.
func (r *Resyncer) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.schedule, func() {
		if r.connected() {
			return
		}
		if err := r.syncer.SyncFromBackend(ctx); err != nil {
			slog.Warn("backend resync failed", "error", err)
			return
		}
		slog.Debug("state resynced from backend")
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	slog.Info("resync scheduled", "schedule", r.schedule)
	return nil
}

// Stop stops the cron ticker.
func (r *Resyncer) Stop() {
	r.cron.Stop()
}
