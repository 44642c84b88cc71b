package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/campuskit/rollcall/internal/services"
	"github.com/campuskit/rollcall/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultRotateEvery        = 25 * time.Second
	defaultAuditSpec          = "@daily"
)

// Cleaner coordinates background maintenance: rotating the QR token of every
// active session on a cadence below the token TTL, and pruning stale audit
// logs.
type Cleaner struct {
	qr        *services.QRTokenService
	audit     *services.AuditService
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	enabled   bool
	retention int

	rotateEvery   time.Duration
	auditSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithRotateEvery overrides the QR rotation cadence.
func WithRotateEvery(every time.Duration) Option {
	return func(cleaner *Cleaner) {
		if every > 0 {
			cleaner.rotateEvery = every
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding job being skipped.
func NewCleaner(qr *services.QRTokenService, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		qr:            qr,
		audit:         audit,
		now:           time.Now,
		retention:     defaultAuditRetentionDays,
		rotateEvery:   defaultRotateEvery,
		auditSchedule: defaultAuditSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.qr != nil || cleaner.audit != nil

	return cleaner
}

// Start registers the jobs with the cron scheduler and launches it when at
// least one job is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.qr != nil {
		spec := fmt.Sprintf("@every %s", c.rotateEvery)
		if _, err := c.cron.AddFunc(spec, func() {
			ctx := context.Background()
			if _, err := c.qr.RotateActiveSessions(ctx); err != nil {
				c.log.Warn("scheduled qr rotation failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			ctx := context.Background()
			if _, err := c.audit.CleanupOlderThan(ctx, c.retention); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured jobs sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.qr != nil {
		if _, err := c.qr.RotateActiveSessions(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.audit.CleanupOlderThan(ctx, c.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
