package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/singleflight"

	"checkpoint/internal/registration/models"
)

// Producer is the slice of *kgo.Client the publisher needs.
type Producer interface {
	Ping(ctx context.Context) error
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Dialer opens a producer that is ready to send.
type Dialer func(ctx context.Context) (Producer, error)

// State is the publisher's connection state.
type State int

const (
	StateUninitialized State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "uninitialized"
	}
}

// Topics names the destination of each event kind.
type Topics struct {
	Registration string
	Notification string
	Error        string
}

const (
	kindRegistration = "registration"
	kindNotification = "notification"
	kindError        = "error"
)

const defaultDialTimeout = 10 * time.Second

// Publisher sends events at most once. It connects lazily, drops events it
// cannot deliver, and reconnects on the next publish after a send failure.
// When disabled it never touches the network.
type Publisher struct {
	enabled bool
	dial    Dialer
	topics  Topics
	service string

	logger      *slog.Logger
	metrics     *Metrics
	now         func() time.Time
	dialTimeout time.Duration

	// dials collapses concurrent connect attempts into one dial, made
	// without holding mu.
	dials singleflight.Group

	mu       sync.Mutex
	state    State
	producer Producer
	// epoch changes on every Disconnect; a dial started in an older epoch
	// does not install its producer.
	epoch uint64
}

// Option configures a Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithServiceID sets the service name stamped on error events.
func WithServiceID(id string) Option {
	return func(p *Publisher) {
		p.service = id
	}
}

// WithClock overrides the time source for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// WithDialTimeout bounds one connection attempt.
func WithDialTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		p.dialTimeout = d
	}
}

// NewPublisher creates a publisher in the uninitialized state. dial is not
// called until the first Connect or publish.
func NewPublisher(enabled bool, dial Dialer, topics Topics, opts ...Option) *Publisher {
	p := &Publisher{
		enabled:     enabled,
		dial:        dial,
		topics:      topics,
		service:     "checkpoint",
		logger:      slog.Default(),
		now:         time.Now,
		dialTimeout: defaultDialTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewDisabled returns a publisher whose operations all report false.
func NewDisabled(opts ...Option) *Publisher {
	return NewPublisher(false, nil, Topics{}, opts...)
}

// IsEnabled tells a disabled publisher apart from one that is failing.
func (p *Publisher) IsEnabled() bool {
	return p.enabled
}

// State returns the current connection state.
func (p *Publisher) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Connect establishes the broker connection if there is none. It reports
// false rather than an error when the broker cannot be reached.
func (p *Publisher) Connect(ctx context.Context) bool {
	if !p.enabled {
		return false
	}
	_, ok := p.acquire(ctx)
	return ok
}

// Disconnect releases the connection. Safe to call repeatedly.
func (p *Publisher) Disconnect() {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.producer != nil {
		p.producer.Close()
		p.producer = nil
	}
	if p.state == StateConnected {
		p.state = StateUninitialized
	}
	p.epoch++
	p.metrics.setConnected(false)
}

// PublishRegistration sends r keyed by its id.
func (p *Publisher) PublishRegistration(ctx context.Context, r *models.Registration) bool {
	if !p.enabled || r == nil {
		return false
	}
	event := RegistrationEvent{Registration: r, PublishedAt: p.now().UTC()}
	return p.publish(ctx, kindRegistration, p.topics.Registration, []byte(r.RegistrationID), event, true)
}

// PublishNotification sends an operator notification.
func (p *Publisher) PublishNotification(ctx context.Context, message string, level Level, metadata map[string]any) bool {
	if !p.enabled {
		return false
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	event := NotificationEvent{
		Message:   message,
		Level:     ParseLevel(string(level)),
		Timestamp: p.now().UTC(),
		Metadata:  metadata,
	}
	return p.publish(ctx, kindNotification, p.topics.Notification, nil, event, true)
}

// PublishError sends an error report. A failure to send it is not itself
// reported.
func (p *Publisher) PublishError(ctx context.Context, errMsg, source string, details map[string]any) bool {
	if !p.enabled {
		return false
	}
	return p.publish(ctx, kindError, p.topics.Error, nil, p.errorEvent(errMsg, source, details), false)
}

func (p *Publisher) errorEvent(errMsg, source string, details map[string]any) ErrorEvent {
	if details == nil {
		details = map[string]any{}
	}
	return ErrorEvent{
		Error:     errMsg,
		Source:    source,
		Service:   p.service,
		Timestamp: p.now().UTC(),
		Details:   details,
	}
}

func (p *Publisher) publish(ctx context.Context, kind, topic string, key []byte, event any, mirror bool) bool {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode event", "kind", kind, "error", err)
		p.metrics.incPublished(kind, "encode_error")
		return false
	}

	producer, ok := p.acquire(ctx)
	if !ok {
		p.logger.WarnContext(ctx, "event dropped, broker not reachable", "kind", kind, "topic", topic)
		p.metrics.incPublished(kind, "not_connected")
		return false
	}

	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		if callerGone(ctx, err) {
			// The broker is not at fault; keep the shared producer.
			p.logger.WarnContext(ctx, "event not sent, caller context done",
				"kind", kind,
				"topic", topic,
				"error", err,
			)
			p.metrics.incPublished(kind, "canceled")
			return false
		}
		p.logger.ErrorContext(ctx, "failed to publish event",
			"kind", kind,
			"topic", topic,
			"error", err,
		)
		p.metrics.incPublished(kind, "send_error")
		if mirror {
			p.mirrorFailure(ctx, producer, kind, topic, err)
		}
		p.release(producer)
		return false
	}

	p.metrics.incPublished(kind, "ok")
	return true
}

// mirrorFailure reports a failed send on the error topic through the same
// producer. Its own outcome is ignored.
func (p *Publisher) mirrorFailure(ctx context.Context, producer Producer, kind, topic string, cause error) {
	event := p.errorEvent(cause.Error(), "event_publisher", map[string]any{
		"kind":  kind,
		"topic": topic,
	})
	value, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := producer.ProduceSync(ctx, &kgo.Record{Topic: p.topics.Error, Value: value}).FirstErr(); err != nil {
		p.logger.DebugContext(ctx, "error event not delivered", "error", err)
	}
}

// acquire returns the live producer, connecting if there is none. Concurrent
// callers share one dial. A caller whose ctx ends while waiting gives up
// without touching the connection state.
func (p *Publisher) acquire(ctx context.Context) (Producer, bool) {
	if producer := p.current(); producer != nil {
		return producer, true
	}

	ch := p.dials.DoChan("dial", func() (any, error) {
		return p.connect(ctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false
		}
		return res.Val.(Producer), true
	case <-ctx.Done():
		return nil, false
	}
}

func (p *Publisher) current() Producer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateConnected {
		return p.producer
	}
	return nil
}

// connect dials outside mu. The dial ignores the caller's cancellation and
// is bounded by dialTimeout instead.
func (p *Publisher) connect(ctx context.Context) (Producer, error) {
	p.mu.Lock()
	if p.state == StateConnected && p.producer != nil {
		producer := p.producer
		p.mu.Unlock()
		return producer, nil
	}
	epoch := p.epoch
	p.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.dialTimeout)
	defer cancel()
	producer, err := p.dial(dialCtx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.logger.WarnContext(ctx, "failed to connect to broker", "error", err)
		p.state = StateDisconnected
		p.metrics.incConnect(false)
		p.metrics.setConnected(false)
		return nil, err
	}
	if epoch != p.epoch {
		producer.Close()
		return nil, errDisconnected
	}

	p.producer = producer
	p.state = StateConnected
	p.metrics.incConnect(true)
	p.metrics.setConnected(true)
	p.logger.InfoContext(ctx, "connected to broker")
	return producer, nil
}

var errDisconnected = errors.New("publisher disconnected during dial")

// callerGone reports whether a send failed because ctx ended rather than
// because of the broker.
func callerGone(ctx context.Context, err error) bool {
	if ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// release drops producer after a send failure, unless another caller has
// already replaced it.
func (p *Publisher) release(producer Producer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.producer != producer {
		return
	}
	producer.Close()
	p.producer = nil
	p.state = StateDisconnected
	p.metrics.setConnected(false)
}
