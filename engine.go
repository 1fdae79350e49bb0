package authflow

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/authflow/jwt"
)

// Engine runs the account workflows: registration, email verification,
// login, logout, token refresh and password reset. It is safe for
// concurrent use once built.
type Engine struct {
	config     Config
	users      UserStore
	sessions   SessionStore
	hasher     PasswordHasher
	notifier   Notifier
	jwtManager *jwt.Manager
	logger     *slog.Logger
	audit      *auditQueue
	metrics    *Metrics
	now        func() time.Time
	sessionTTL time.Duration
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Ready reports whether the session store answers. Stores without a Ping
// method are assumed ready.
func (e *Engine) Ready(ctx context.Context) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	p, ok := e.sessions.(interface {
		Ping(ctx context.Context) (time.Duration, error)
	})
	if !ok {
		return nil
	}
	latency, err := p.Ping(ctx)
	if err != nil {
		return internalError("ready: ping session store", err)
	}
	e.logger.DebugContext(ctx, "session store ping", slog.Duration("latency", latency))
	return nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// AuditDropped reports how many audit events were discarded on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// deliver runs send under the notify timeout. Delivery failures are logged,
// counted and audited but never undo the record change that preceded them.
func (e *Engine) deliver(ctx context.Context, kind string, user *User, send func(context.Context) error) {
	nctx, cancel := context.WithTimeout(ctx, e.config.Notify.Timeout)
	defer cancel()

	start := time.Now()
	err := send(nctx)
	e.metrics.Observe(MetricNotifyLatency, time.Since(start))
	if err == nil {
		return
	}

	e.metricInc(MetricNotifyFailure)
	e.logger.WarnContext(ctx, "notification failed",
		slog.String("kind", kind),
		slog.String("user_id", user.ID),
		slog.Any("error", err),
	)
	e.emitAudit(ctx, auditEventNotificationFailed, false, user.ID, user.Email, err, func() map[string]string {
		return map[string]string{"kind": kind}
	})
}

func (e *Engine) message(user *User, token string) EmailMessage {
	return EmailMessage{
		Name:   user.Name,
		Email:  user.Email,
		Token:  token,
		Origin: e.config.App.Origin,
	}
}

// NormalizeEmail is the canonical form under which emails are stored and looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
