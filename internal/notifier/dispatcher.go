package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/youthcamp/registration-api/internal/metrics"
	"github.com/youthcamp/registration-api/internal/registration"
	"golang.org/x/sync/errgroup"
)

// Dispatcher fans committed registrations out to notifiers on a fixed pool
// of workers. Dispatch never blocks the request path.
type Dispatcher struct {
	queue     chan registration.Receipt
	notifiers []Notifier
	workers   int
	timeout   time.Duration
	metrics   *metrics.Metrics

	// mu guards stopped. Dispatch holds it for reading while it enqueues so
	// Run can close the queue to new receipts before its final drain.
	mu      sync.RWMutex
	stopped bool
}

func NewDispatcher(workers, queueSize int, timeout time.Duration, m *metrics.Metrics, notifiers ...Notifier) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if len(notifiers) == 0 {
		notifiers = []Notifier{Noop{}}
	}
	return &Dispatcher{
		queue:     make(chan registration.Receipt, queueSize),
		notifiers: notifiers,
		workers:   workers,
		timeout:   timeout,
		metrics:   m,
	}
}

// Dispatch queues a receipt. When the queue is full, or Run has already
// returned, the receipt is dropped and logged.
func (d *Dispatcher) Dispatch(receipt registration.Receipt) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.drop(receipt, "dispatcher stopped, dropping registration notice")
		return
	}
	select {
	case d.queue <- receipt:
	default:
		d.drop(receipt, "notification queue full, dropping registration notice")
	}
}

func (d *Dispatcher) drop(receipt registration.Receipt, msg string) {
	d.metrics.IncNotificationDropped()
	log.Error().Uint("id", receipt.ID).Str("email", receipt.Email).Msg(msg)
}

// Run starts the workers and blocks until ctx is cancelled. Messages already
// queued are still delivered before it returns. Cancel ctx only after the
// last caller of Dispatch is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case receipt := <-d.queue:
					d.deliver(context.WithoutCancel(ctx), receipt)
				}
			}
		})
	}
	err := g.Wait()

	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	// Drain
	for {
		select {
		case receipt := <-d.queue:
			d.deliver(context.WithoutCancel(ctx), receipt)
		default:
			return err
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, receipt registration.Receipt) {
	for _, n := range d.notifiers {
		nctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := n.NotifyRegistration(nctx, receipt)
		cancel()

		if err != nil {
			d.metrics.IncNotification(n.Name(), "failed")
			log.Error().Err(err).Str("notifier", n.Name()).Uint("id", receipt.ID).Msg("failed to send notification")
			continue
		}
		d.metrics.IncNotification(n.Name(), "sent")
	}
}
