// Package notify delivers found-server records to the console and to an
// outbound notification channel, either synchronously or through a buffered
// background consumer.
package notify

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kdltmhl/mc-ip-scanner/scanner"
)

// MinNotifySpacing is the guaranteed minimum gap between consecutive
// outbound notifications.
const MinNotifySpacing = 750 * time.Millisecond

const queueDepth = 256

// SpacingLimiter builds the shared limiter enforcing a minimum gap between
// sends. Concurrent senders queue on it instead of bursting.
func SpacingLimiter(spacing time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(spacing), 1)
}

// Sink fans found servers out to the console and the notification channel.
// In real-time mode Deliver is fully synchronous; in batched mode records
// queue up for a single background consumer.
type Sink struct {
	notifier Notifier
	limiter  *rate.Limiter
	realtime bool
	log      *slog.Logger

	ctx       context.Context
	queue     chan scanner.ServerRecord
	done      chan struct{}
	closeOnce sync.Once
}

// NewSink builds a sink. ctx stops the batched consumer early on shutdown;
// limiter may be nil to disable send spacing (tests).
func NewSink(ctx context.Context, notifier Notifier, realtime bool, limiter *rate.Limiter, log *slog.Logger) *Sink {
	if notifier == nil {
		notifier = Unavailable()
	}
	s := &Sink{
		notifier: notifier,
		limiter:  limiter,
		realtime: realtime,
		log:      log,
		ctx:      ctx,
	}
	if !realtime {
		s.queue = make(chan scanner.ServerRecord, queueDepth)
		s.done = make(chan struct{})
		go s.consume()
	}
	return s
}

// Deliver hands one record to the sink. Real-time mode blocks until console
// and channel delivery finished; batched mode only appends to the queue.
func (s *Sink) Deliver(rec scanner.ServerRecord) {
	if s.realtime {
		s.deliver(rec)
		return
	}
	// The shutdown check comes before the send: once cancelled nothing may
	// land in the queue, or a record could sit in the buffer behind a
	// consumer that already exited.
	if s.ctx.Err() != nil {
		s.fallback(rec)
		return
	}
	select {
	case s.queue <- rec:
	case <-s.done:
		s.fallback(rec)
	}
}

// fallback prints a record that can no longer be queued, so it is not lost
// silently.
func (s *Sink) fallback(rec scanner.ServerRecord) {
	PrintRecord(os.Stdout, rec)
	s.log.Warn("shutdown in progress, record not queued for notification", "ip", rec.IP)
}

// Close flushes the batched queue and waits for the consumer to finish.
// No-op in real-time mode. Deliver must not be called after Close.
func (s *Sink) Close() {
	if s.realtime {
		return
	}
	s.closeOnce.Do(func() { close(s.queue) })
	<-s.done
}

// consume drains the queue until it is closed or shutdown is requested.
// The blocking receive replaces fixed-interval polling: the consumer wakes
// exactly when a record or the shutdown signal arrives.
func (s *Sink) consume() {
	defer close(s.done)
	for {
		select {
		case rec, ok := <-s.queue:
			if !ok {
				return
			}
			s.deliver(rec)
		case <-s.ctx.Done():
			// Records already buffered when shutdown hit still reach the
			// console.
			for {
				select {
				case rec, ok := <-s.queue:
					if !ok {
						return
					}
					s.fallback(rec)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) deliver(rec scanner.ServerRecord) {
	PrintRecord(os.Stdout, rec)

	if s.limiter != nil {
		if err := s.limiter.Wait(s.ctx); err != nil {
			return
		}
	}
	if !s.notifier.Send(rec) {
		s.log.Warn("notification not delivered, console output only", "ip", rec.IP, "port", rec.Port)
	}
}
