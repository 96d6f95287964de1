package events

//go:generate mockgen -source=publisher.go -destination=mocks/mocks.go -package=mocks Producer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/mock/gomock"

	"checkpoint/internal/events/mocks"
	"checkpoint/internal/registration/models"
	"checkpoint/pkg/testutil"
)

var (
	testTopics = Topics{Registration: "registrations", Notification: "notifications", Error: "errors"}
	fixedNow   = time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
)

// countingDialer hands out producers in order and counts dial attempts.
type countingDialer struct {
	calls     atomic.Int32
	producers []Producer
	err       error
}

func (d *countingDialer) dial(context.Context) (Producer, error) {
	n := int(d.calls.Add(1))
	if d.err != nil {
		return nil, d.err
	}
	if n > len(d.producers) {
		return nil, errors.New("no producer left")
	}
	return d.producers[n-1], nil
}

func newTestPublisher(d *countingDialer) *Publisher {
	return NewPublisher(true, d.dial, testTopics,
		WithLogger(testutil.DiscardLogger()),
		WithServiceID("checkpoint-test"),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func produced(rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r})
	}
	return results
}

func failed(err error) func(context.Context, ...*kgo.Record) kgo.ProduceResults {
	return func(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
		results := make(kgo.ProduceResults, 0, len(rs))
		for _, r := range rs {
			results = append(results, kgo.ProduceResult{Record: r, Err: err})
		}
		return results
	}
}

func sampleRegistration() *models.Registration {
	return &models.Registration{
		RegistrationID: "ENTRY-1714552200000",
		Type:           models.DirectionEntry,
		Timestamp:      fixedNow,
		IdentityData:   models.IdentityData{IDNumber: "AB123456", FirstName: "Amina", LastName: "Benali"},
		PlateData:      models.PlateData{PlateNumber: "12345-A-6", Confidence: 0.91},
	}
}

func TestDisabledPublisher(t *testing.T) {
	p := NewDisabled(WithLogger(testutil.DiscardLogger()))
	ctx := context.Background()

	assert.False(t, p.IsEnabled())
	assert.False(t, p.Connect(ctx))
	assert.False(t, p.PublishRegistration(ctx, sampleRegistration()))
	assert.False(t, p.PublishNotification(ctx, "hello", LevelInfo, nil))
	assert.False(t, p.PublishError(ctx, "boom", "test", nil))
	p.Disconnect()
	assert.Equal(t, StateUninitialized, p.State())

	t.Run("dialer is never called", func(t *testing.T) {
		d := &countingDialer{}
		p := NewPublisher(false, d.dial, testTopics, WithLogger(testutil.DiscardLogger()))
		assert.False(t, p.Connect(ctx))
		assert.False(t, p.PublishRegistration(ctx, sampleRegistration()))
		assert.False(t, p.PublishNotification(ctx, "hello", LevelWarning, nil))
		assert.False(t, p.PublishError(ctx, "boom", "test", nil))
		assert.Zero(t, d.calls.Load())
	})
}

func TestPublisherConnectsLazily(t *testing.T) {
	ctrl := gomock.NewController(t)
	producer := mocks.NewMockProducer(ctrl)
	d := &countingDialer{producers: []Producer{producer}}
	p := newTestPublisher(d)
	ctx := context.Background()

	assert.Equal(t, StateUninitialized, p.State())
	assert.Zero(t, d.calls.Load())

	producer.EXPECT().ProduceSync(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
			return produced(rs...)
		}).Times(2)

	assert.True(t, p.PublishNotification(ctx, "first", LevelInfo, nil))
	assert.True(t, p.PublishNotification(ctx, "second", LevelInfo, nil))
	assert.Equal(t, StateConnected, p.State())
	assert.EqualValues(t, 1, d.calls.Load())
}

func TestPublisherConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		producer := mocks.NewMockProducer(gomock.NewController(t))
		d := &countingDialer{producers: []Producer{producer}}
		p := newTestPublisher(d)

		assert.True(t, p.Connect(ctx))
		assert.True(t, p.Connect(ctx))
		assert.EqualValues(t, 1, d.calls.Load())
		assert.Equal(t, StateConnected, p.State())
	})

	t.Run("unreachable broker is false, not an error", func(t *testing.T) {
		d := &countingDialer{err: errors.New("dial tcp: connection refused")}
		p := newTestPublisher(d)

		assert.False(t, p.Connect(ctx))
		assert.Equal(t, StateDisconnected, p.State())

		assert.False(t, p.PublishRegistration(ctx, sampleRegistration()))
		assert.Equal(t, StateDisconnected, p.State())
		assert.EqualValues(t, 2, d.calls.Load())
	})
}

func TestPublisherSendFailure(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	first := mocks.NewMockProducer(ctrl)
	second := mocks.NewMockProducer(ctrl)
	d := &countingDialer{producers: []Producer{first, second}}
	p := newTestPublisher(d)
	r := sampleRegistration()

	var mirrored *kgo.Record
	testutil.Given(t, "a broker that rejects the first send", func(t *testing.T) {
		gomock.InOrder(
			first.EXPECT().ProduceSync(gomock.Any(), gomock.Any()).
				DoAndReturn(failed(errors.New("NOT_LEADER_FOR_PARTITION"))),
			first.EXPECT().ProduceSync(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
					mirrored = rs[0]
					return produced(rs...)
				}),
			first.EXPECT().Close(),
		)
	})

	testutil.When(t, "a registration is published", func(t *testing.T) {
		assert.False(t, p.PublishRegistration(ctx, r))
	})

	testutil.Then(t, "the failure is mirrored and the publisher is disconnected", func(t *testing.T) {
		require.NotNil(t, mirrored)
		assert.Equal(t, "errors", mirrored.Topic)

		var event ErrorEvent
		require.NoError(t, json.Unmarshal(mirrored.Value, &event))
		assert.Equal(t, "NOT_LEADER_FOR_PARTITION", event.Error)
		assert.Equal(t, "event_publisher", event.Source)
		assert.Equal(t, "checkpoint-test", event.Service)
		assert.Equal(t, "registrations", event.Details["topic"])
		assert.Equal(t, StateDisconnected, p.State())
	})

	testutil.And(t, "the next publish reconnects exactly once before sending", func(t *testing.T) {
		var sent *kgo.Record
		second.EXPECT().ProduceSync(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
				sent = rs[0]
				return produced(rs...)
			})

		assert.True(t, p.PublishRegistration(ctx, r))
		assert.EqualValues(t, 2, d.calls.Load())
		assert.Equal(t, StateConnected, p.State())
		require.NotNil(t, sent)
		assert.Equal(t, []byte(r.RegistrationID), sent.Key)
	})
}

// gatedDialer blocks every dial until release is closed.
type gatedDialer struct {
	calls    atomic.Int32
	started  chan struct{}
	release  chan struct{}
	producer Producer
}

func newGatedDialer(producer Producer) *gatedDialer {
	return &gatedDialer{
		started:  make(chan struct{}, 8),
		release:  make(chan struct{}),
		producer: producer,
	}
}

func (d *gatedDialer) dial(context.Context) (Producer, error) {
	d.calls.Add(1)
	d.started <- struct{}{}
	<-d.release
	return d.producer, nil
}

func TestPublisherCallerCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	producer := mocks.NewMockProducer(ctrl)
	d := &countingDialer{producers: []Producer{producer}}
	p := newTestPublisher(d)
	require.True(t, p.Connect(context.Background()))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	// No mirrored error event and no Close: the producer stays in service.
	producer.EXPECT().ProduceSync(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults {
			return failed(ctx.Err())(ctx, rs...)
		}).Times(1)

	assert.False(t, p.PublishRegistration(cancelled, sampleRegistration()))
	assert.Equal(t, StateConnected, p.State())

	producer.EXPECT().ProduceSync(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
			return produced(rs...)
		})
	assert.True(t, p.PublishRegistration(context.Background(), sampleRegistration()))
	assert.EqualValues(t, 1, d.calls.Load())
}

func TestPublisherSharesOneDial(t *testing.T) {
	producer := mocks.NewMockProducer(gomock.NewController(t))
	d := newGatedDialer(producer)
	p := NewPublisher(true, d.dial, testTopics, WithLogger(testutil.DiscardLogger()))
	ctx := context.Background()

	results := make([]bool, 5)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.Connect(ctx)
		}()
	}

	<-d.started
	// The dial does not hold the state lock.
	assert.Equal(t, StateUninitialized, p.State())
	close(d.release)
	wg.Wait()

	for _, ok := range results {
		assert.True(t, ok)
	}
	assert.EqualValues(t, 1, d.calls.Load())
	assert.Equal(t, StateConnected, p.State())
}

func TestPublisherWaitingCallerGivesUp(t *testing.T) {
	producer := mocks.NewMockProducer(gomock.NewController(t))
	d := newGatedDialer(producer)
	p := NewPublisher(true, d.dial, testTopics, WithLogger(testutil.DiscardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() { done <- p.Connect(ctx) }()

	<-d.started
	cancel()
	assert.False(t, <-done)
	assert.Equal(t, StateUninitialized, p.State())

	close(d.release)
	assert.Eventually(t, func() bool { return p.State() == StateConnected }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, d.calls.Load())
}

func TestDisconnectDuringDial(t *testing.T) {
	ctrl := gomock.NewController(t)
	producer := mocks.NewMockProducer(ctrl)
	d := newGatedDialer(producer)
	p := NewPublisher(true, d.dial, testTopics, WithLogger(testutil.DiscardLogger()))

	done := make(chan bool, 1)
	go func() { done <- p.Connect(context.Background()) }()

	<-d.started
	p.Disconnect()
	producer.EXPECT().Close().Times(1)
	close(d.release)

	assert.False(t, <-done)
	assert.Equal(t, StateUninitialized, p.State())
}

func TestPublishErrorIsNotMirrored(t *testing.T) {
	ctrl := gomock.NewController(t)
	producer := mocks.NewMockProducer(ctrl)
	d := &countingDialer{producers: []Producer{producer}}
	p := newTestPublisher(d)

	producer.EXPECT().ProduceSync(gomock.Any(), gomock.Any()).
		DoAndReturn(failed(errors.New("broker gone"))).Times(1)
	producer.EXPECT().Close()

	assert.False(t, p.PublishError(context.Background(), "aggregation failed", "aggregator", nil))
	assert.Equal(t, StateDisconnected, p.State())
}

func TestPublisherRecords(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	producer := mocks.NewMockProducer(ctrl)
	d := &countingDialer{producers: []Producer{producer}}
	p := newTestPublisher(d)

	var records []*kgo.Record
	producer.EXPECT().ProduceSync(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
			records = append(records, rs...)
			return produced(rs...)
		}).AnyTimes()

	r := sampleRegistration()
	r.Extra = map[string]any{"gate": "north"}
	require.True(t, p.PublishRegistration(ctx, r))
	require.True(t, p.PublishNotification(ctx, "vehicle entered", "WARN", map[string]any{"plate": "12345-A-6"}))
	require.True(t, p.PublishError(ctx, "timeout", "identity", map[string]any{"attempt": 1}))
	require.Len(t, records, 3)

	t.Run("registration", func(t *testing.T) {
		rec := records[0]
		assert.Equal(t, "registrations", rec.Topic)
		assert.Equal(t, "ENTRY-1714552200000", string(rec.Key))

		var raw map[string]any
		require.NoError(t, json.Unmarshal(rec.Value, &raw))
		assert.Equal(t, "north", raw["gate"])
		assert.Equal(t, "2024-05-01T08:30:00Z", raw["publishedAt"])
		assert.Equal(t, "entry", raw["type"])
	})

	t.Run("notification", func(t *testing.T) {
		rec := records[1]
		assert.Equal(t, "notifications", rec.Topic)
		assert.Nil(t, rec.Key)

		var event NotificationEvent
		require.NoError(t, json.Unmarshal(rec.Value, &event))
		assert.Equal(t, "vehicle entered", event.Message)
		assert.Equal(t, LevelWarning, event.Level)
		assert.Equal(t, fixedNow, event.Timestamp)
		assert.Equal(t, "12345-A-6", event.Metadata["plate"])
	})

	t.Run("error", func(t *testing.T) {
		rec := records[2]
		assert.Equal(t, "errors", rec.Topic)

		var event ErrorEvent
		require.NoError(t, json.Unmarshal(rec.Value, &event))
		assert.Equal(t, "timeout", event.Error)
		assert.Equal(t, "identity", event.Source)
		assert.Equal(t, "checkpoint-test", event.Service)
		assert.InDelta(t, 1, event.Details["attempt"], 0)
	})
}

func TestPublisherDisconnect(t *testing.T) {
	ctrl := gomock.NewController(t)
	producer := mocks.NewMockProducer(ctrl)
	d := &countingDialer{producers: []Producer{producer}}
	p := newTestPublisher(d)

	require.True(t, p.Connect(context.Background()))
	producer.EXPECT().Close().Times(1)

	p.Disconnect()
	assert.Equal(t, StateUninitialized, p.State())
	p.Disconnect()
	assert.Equal(t, StateUninitialized, p.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
}
