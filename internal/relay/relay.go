// Package relay implements the receipt pipeline: a decoded letter is
// validated against the acceptance policy and counted. Receipts are reported
// to the notifier by a background worker so delivery never holds a request.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shineum/sealed-relay/internal/address"
	"github.com/shineum/sealed-relay/internal/counter"
	"github.com/shineum/sealed-relay/internal/identifier"
	"github.com/shineum/sealed-relay/internal/mail"
	"github.com/shineum/sealed-relay/internal/notify"
	"github.com/shineum/sealed-relay/internal/policy"
	"github.com/shineum/sealed-relay/internal/validate"
)

// Defaults for receipt notification.
const (
	defaultNotifyQueue   = 256
	defaultNotifyTimeout = 30 * time.Second
)

// Config holds the collaborators of a Service.
type Config struct {
	// Host is the host name of this relay, used for sample letters and as
	// the origin of attachments on anonymous letters.
	Host string

	Policy   policy.Policy
	Counter  counter.Counter
	Notifier notify.Notifier

	// NotifyQueue is the number of receipts that may wait for the
	// notification worker. Receipts beyond it are dropped.
	NotifyQueue int

	// NotifyTimeout bounds a single notification, retries included.
	NotifyTimeout time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service receives letters. It is safe for concurrent use; the shared
// mutable state is the injected Counter and the notification queue.
type Service struct {
	host          string
	origin        address.Address
	policy        policy.Policy
	counter       counter.Counter
	notifier      notify.Notifier
	notifyTimeout time.Duration
	now           func() time.Time

	// queue is nil when receipts are discarded.
	queue chan *mail.Receipt
}

// New creates a Service. A nil Notifier discards receipts.
func New(cfg Config) *Service {
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.NotifyQueue <= 0 {
		cfg.NotifyQueue = defaultNotifyQueue
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = defaultNotifyTimeout
	}

	s := &Service{
		host:          cfg.Host,
		origin:        address.New(identifier.New(), cfg.Host),
		policy:        cfg.Policy,
		counter:       cfg.Counter,
		notifier:      cfg.Notifier,
		notifyTimeout: cfg.NotifyTimeout,
		now:           cfg.Now,
	}
	if _, discard := cfg.Notifier.(notify.Discard); !discard {
		s.queue = make(chan *mail.Receipt, cfg.NotifyQueue)
	}
	return s
}

// Receive validates letter and, if accepted, increments the received
// counter and queues the receipt for Run. It returns a *validate.Rejection
// for policy violations and an error wrapping counter.ErrUnavailable when
// the store fails.
func (s *Service) Receive(ctx context.Context, letter *mail.Letter) (*mail.Receipt, error) {
	if err := validate.Validate(letter, s.policy); err != nil {
		return nil, err
	}

	count, err := s.counter.IncrementReceived(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count received letter: %w", err)
	}

	if letter.Sender != nil {
		slog.Debug("received a letter", "letter_id", letter.ID.String(), "sender", letter.Sender.String())
	} else {
		slog.Debug("received an anonymous letter", "letter_id", letter.ID.String())
	}

	receipt := mail.NewReceipt(letter, s.origin, count, s.now())
	s.enqueue(receipt)
	return receipt, nil
}

func (s *Service) enqueue(receipt *mail.Receipt) {
	if s.queue == nil {
		return
	}
	select {
	case s.queue <- receipt:
	default:
		slog.Warn("notification queue is full, dropping receipt",
			"notifier", s.notifier.Name(),
			"letter_id", receipt.LetterID.String(),
		)
	}
}

// Run delivers queued receipts to the notifier until ctx is done. A failed
// notification is logged and not retried here. Each delivery gets its own
// NotifyTimeout and is allowed to finish after ctx is cancelled; receipts
// still queued at that point are dropped.
func (s *Service) Run(ctx context.Context) {
	if s.queue == nil {
		<-ctx.Done()
		return
	}

	for {
		select {
		case <-ctx.Done():
			if pending := len(s.queue); pending > 0 {
				slog.Warn("dropping queued receipt notifications",
					"notifier", s.notifier.Name(),
					"pending", pending,
				)
			}
			return
		case receipt := <-s.queue:
			s.deliver(ctx, receipt)
		}
	}
}

func (s *Service) deliver(ctx context.Context, receipt *mail.Receipt) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	if err := s.notifier.Notify(ctx, receipt); err != nil {
		slog.Warn("failed to send receipt notification",
			"notifier", s.notifier.Name(),
			"letter_id", receipt.LetterID.String(),
			"error", err,
		)
	}
}

// Sample returns a freshly generated letter addressed on this host and
// counts it as sent.
func (s *Service) Sample(ctx context.Context) (*mail.Letter, error) {
	if _, err := s.counter.IncrementSent(ctx); err != nil {
		return nil, fmt.Errorf("failed to count sent letter: %w", err)
	}
	return mail.SampleLetter(s.host), nil
}

// Stats returns the current counter values.
func (s *Service) Stats(ctx context.Context) (counter.Stats, error) {
	stats, err := s.counter.Stats(ctx)
	if err != nil {
		return counter.Stats{}, fmt.Errorf("failed to read counters: %w", err)
	}
	return stats, nil
}

// Policy returns the acceptance policy in force.
func (s *Service) Policy() policy.Policy {
	return s.policy
}

// Host returns the relay host name.
func (s *Service) Host() string {
	return s.host
}
