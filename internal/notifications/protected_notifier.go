package notifications

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

type breakerState string

const (
	stateClosed   breakerState = "closed"
	stateOpen     breakerState = "open"
	stateHalfOpen breakerState = "half_open"
)

type ProtectedNotifierConfig struct {
	Timeout          time.Duration // per send
	FailureThreshold int           // consecutive failures before opening
	Cooldown         time.Duration // open -> half-open
	HalfOpenMaxCalls int           // concurrent probes while half-open
}

// ProtectedNotifier bounds each send with a timeout and stops calling the
// provider after repeated failures until a cooldown passes.
type ProtectedNotifier struct {
	inner Notifier
	cfg   ProtectedNotifierConfig

	mu                  sync.Mutex
	state               breakerState
	consecutiveFailures int
	openedAt            time.Time
	probes              int

	now func() time.Time
}

func NewProtectedNotifier(inner Notifier, cfg ProtectedNotifierConfig) *ProtectedNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &ProtectedNotifier{
		inner: inner,
		cfg:   cfg,
		state: stateClosed,
		now:   time.Now,
	}
}

func (n *ProtectedNotifier) SendCertificate(ctx context.Context, input CertificateInput) error {
	return n.guard(ctx, func(ctx context.Context) error {
		return n.inner.SendCertificate(ctx, input)
	})
}

func (n *ProtectedNotifier) SendSummary(ctx context.Context, input SummaryInput) error {
	return n.guard(ctx, func(ctx context.Context) error {
		return n.inner.SendSummary(ctx, input)
	})
}

func (n *ProtectedNotifier) State() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return string(n.state)
}

func (n *ProtectedNotifier) guard(ctx context.Context, send func(context.Context) error) error {
	if !n.acquire() {
		return ErrCircuitOpen
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	err := send(sendCtx)

	// the caller giving up says nothing about provider health
	if err != nil && ctx.Err() != nil {
		n.record(nil, false)
		return err
	}

	n.record(err, true)
	return err
}

func (n *ProtectedNotifier) acquire() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state == stateOpen {
		if n.now().Sub(n.openedAt) < n.cfg.Cooldown {
			return false
		}
		n.state = stateHalfOpen
		n.probes = 0
	}

	if n.state == stateHalfOpen {
		if n.probes >= n.cfg.HalfOpenMaxCalls {
			return false
		}
		n.probes++
	}

	return true
}

// record settles a finished call. counted=false only releases a probe slot.
func (n *ProtectedNotifier) record(err error, counted bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	wasProbe := n.state == stateHalfOpen
	if wasProbe && n.probes > 0 {
		n.probes--
	}

	if !counted {
		return
	}

	if err == nil {
		n.consecutiveFailures = 0
		n.state = stateClosed
		return
	}

	n.consecutiveFailures++

	if wasProbe || n.consecutiveFailures >= n.cfg.FailureThreshold {
		n.state = stateOpen
		n.openedAt = n.now()
	}
}
