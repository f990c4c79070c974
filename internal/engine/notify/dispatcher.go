package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"hooklens/internal/metrics"
	"hooklens/internal/platform/config"
	"hooklens/internal/platform/models"
)

// Event is a captured request that its webhook owner asked to be told
// about.
type Event struct {
	Webhook *models.Webhook
	Request *models.CapturedRequest
}

type Notifier interface {
	Channel() string
	Enabled(n models.Notifications) bool
	Notify(ctx context.Context, ev Event) error
}

// Dispatcher delivers events on a fixed pool of workers. Enqueue never
// blocks the capture path: when the queue is full the event is dropped.
type Dispatcher struct {
	queue     chan Event
	notifiers []Notifier
	workers   int
	attempts  int
	backoff   time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewDispatcher(cfg config.NotificationsConfig, notifiers ...Notifier) *Dispatcher {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		queue:     make(chan Event, cfg.QueueSize),
		notifiers: notifiers,
		workers:   cfg.WorkerCount,
		attempts:  cfg.RetryAttempts,
		backoff:   cfg.RetryBackoff,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	log.Info().Int("workers", d.workers).Int("queue_size", cap(d.queue)).Msg("Notification dispatcher started")
}

// Enqueue reports whether the event was accepted.
func (d *Dispatcher) Enqueue(ev Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}

	select {
	case d.queue <- ev:
		metrics.NotificationQueueDepth.Inc()
		return true
	default:
		metrics.NotificationsDropped.Inc()
		log.Warn().
			Str("webhook_id", ev.Webhook.ID).
			Str("request_id", ev.Request.ID).
			Msg("Notification queue full, dropping event")
		return false
	}
}

// Close stops accepting events and waits for queued ones to drain. Pending
// retries are abandoned once ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for ev := range d.queue {
		metrics.NotificationQueueDepth.Dec()
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev Event) {
	for _, n := range d.notifiers {
		if !n.Enabled(ev.Webhook.Notifications) {
			continue
		}

		err := d.withRetry(n, ev)
		status := "sent"
		if err != nil {
			status = "failed"
			log.Error().Err(err).
				Str("channel", n.Channel()).
				Str("webhook_id", ev.Webhook.ID).
				Str("request_id", ev.Request.ID).
				Msg("Notification delivery failed")
		}
		metrics.Notifications.WithLabelValues(n.Channel(), status).Inc()
	}
}

func (d *Dispatcher) withRetry(n Notifier, ev Event) error {
	wait := d.backoff
	var err error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		ctx, cancel := context.WithTimeout(d.ctx, 10*time.Second)
		err = n.Notify(ctx, ev)
		cancel()
		if err == nil || attempt == d.attempts {
			return err
		}

		log.Debug().Err(err).Str("channel", n.Channel()).Int("attempt", attempt).Msg("Retrying notification")
		select {
		case <-time.After(wait):
		case <-d.ctx.Done():
			return d.ctx.Err()
		}
		wait *= 2
	}
	return err
}
