package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// TemplateElement is used by a renderer to identify the different parts of an email template.
type TemplateElement string

const (
	ElementSubject TemplateElement = "subject"
	ElementBody    TemplateElement = "body"
)

// Renderer is responsible for rendering email templates.
type Renderer interface {
	Render(ctx context.Context, name string, element TemplateElement, data any) (string, error)
}

// Sender is responsible for actually sending an email.
type Sender interface {
	Send(ctx context.Context, sender, recipient Address, subject, body string) error
}

// Message is an email waiting to be rendered and sent.
type Message struct {
	Template  string
	Recipient Address
	Data      any
}

// ServiceConfig is the configuration for the email service.
type ServiceConfig struct {
	// From is the sender address on all outgoing email.
	From Address
	// QueueSize is the capacity of the outbound queue.
	QueueSize int
	// MaxRetries is the number of delivery retries after the first attempt.
	MaxRetries uint64
	// RetryBaseDelay is the initial backoff delay between delivery attempts.
	RetryBaseDelay time.Duration
	// SendTimeout is the max duration for a single delivery, all
	// attempts included.
	SendTimeout time.Duration
}

// Service queues outbound email and delivers it in the background.
//
// Callers hand a Message to Enqueue and move on; no request ever waits
// on an email provider. A worker started with Run consumes the queue,
// renders the template and sends the result, retrying transient
// failures with exponential backoff. Delivery is at-least-once, the
// tokens embedded in our emails are safe to send twice.
type Service struct {
	renderer Renderer
	sender   Sender
	logger   *slog.Logger
	cfg      ServiceConfig
	queue    chan Message
}

func NewService(renderer Renderer, sender Sender, logger *slog.Logger, cfg ServiceConfig) *Service {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = time.Minute
	}

	return &Service{
		renderer: renderer,
		sender:   sender,
		logger:   logger,
		cfg:      cfg,
		queue:    make(chan Message, cfg.QueueSize),
	}
}

// Enqueue adds a message to the outbound queue. It only blocks when the
// queue is at capacity.
func (s *Service) Enqueue(msg Message) {
	s.queue <- msg
}

// Run delivers queued messages until ctx is cancelled. After
// cancellation it drains the messages that are already queued before
// returning, so accepted email is not lost on shutdown.
func (s *Service) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case msg := <-s.queue:
					s.deliver(msg)
				default:
					return nil
				}
			}
		case msg := <-s.queue:
			s.deliver(msg)
		}
	}
}

// deliver sends a single message. It deliberately does not use the Run
// context, a shutdown should not abort a delivery that is in flight.
func (s *Service) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SendTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(s.cfg.MaxRetries, retry.NewExponential(s.cfg.RetryBaseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		subject, body, err := s.render(ctx, msg)
		if err != nil {
			// A template that fails to render will fail on every
			// attempt, don't bother retrying.
			return err
		}

		err = s.sender.Send(ctx, s.cfg.From, msg.Recipient, subject, body)
		if err != nil {
			return retry.RetryableError(err)
		}

		return nil
	})
	if err != nil {
		s.logger.Error("failed to deliver email",
			"template", msg.Template,
			"recipient", msg.Recipient,
			"error", err,
		)
	}
}

func (s *Service) render(ctx context.Context, msg Message) (string, string, error) {
	subject, err := s.renderer.Render(ctx, msg.Template, ElementSubject, msg.Data)
	if err != nil {
		return "", "", fmt.Errorf("failed to render subject: %w", err)
	}

	body, err := s.renderer.Render(ctx, msg.Template, ElementBody, msg.Data)
	if err != nil {
		return "", "", fmt.Errorf("failed to render body: %w", err)
	}

	return subject, body, nil
}
