package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gav/internal/models"
	"gav/internal/store"
)

const (
	defaultAuditBuffer = 256
	auditWriteTimeout  = 5 * time.Second
)

// Auditor writes audit events to the store on a buffered side channel.
// Recording never blocks a request: a full buffer drops the event, and a
// failed store write falls back to the process log. Audit failures must
// never mask or replace the primary response.
type Auditor struct {
	store   store.AuditStore
	logger  *slog.Logger
	metrics *Metrics

	events chan models.AuditEvent
	done   chan struct{}
	once   sync.Once
}

// NewAuditor starts the audit worker.
func NewAuditor(auditStore store.AuditStore, logger *slog.Logger, buffer int, metrics *Metrics) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = defaultAuditBuffer
	}

	a := &Auditor{
		store:   auditStore,
		logger:  logger,
		metrics: metrics,
		events:  make(chan models.AuditEvent, buffer),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Record enqueues one event, fire-and-forget. Returns false when the
// buffer is full and the event was dropped.
func (a *Auditor) Record(event models.AuditEvent) bool {
	if a == nil {
		return false
	}
	select {
	case a.events <- event:
		return true
	default:
		a.metrics.ObserveAuditDrop()
		a.logger.Debug("audit event dropped", "method", event.Method, "path", event.Path, "status", event.Status)
		return false
	}
}

// Close stops the worker after draining buffered events.
func (a *Auditor) Close() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		close(a.events)
		<-a.done
	})
}

func (a *Auditor) run() {
	defer close(a.done)
	for event := range a.events {
		a.write(event)
	}
}

func (a *Auditor) write(event models.AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := a.store.InsertAuditEvent(ctx, &event); err != nil {
		// Local fallback: the event still lands in the process log.
		a.logger.Warn("audit write failed",
			"error", err,
			"method", event.Method,
			"path", event.Path,
			"status", event.Status,
			"outcome", event.Outcome,
			"request_id", event.RequestID,
		)
	}
}
