package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pieshop-backend/internal/orders"
	"github.com/angelmondragon/pieshop-backend/pkg/config"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
	"github.com/angelmondragon/pieshop-backend/pkg/metrics"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
	fired   chan Notice
	err     error
	closed  bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{fired: make(chan Notice, 8)}
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) NotifyDelivered(_ context.Context, notice Notice) error {
	r.mu.Lock()
	r.notices = append(r.notices, notice)
	r.mu.Unlock()
	r.fired <- notice
	return r.err
}

func (r *recordingNotifier) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "delivery-test", Output: io.Discard})
}

func confirmation(eta time.Time) orders.OrderConfirmation {
	return orders.OrderConfirmation{
		OrderID:     uuid.New(),
		UserID:      77,
		Total:       decimal.RequireFromString("141.00"),
		PlacedAt:    eta.Add(-5 * time.Second),
		DeliveryETA: eta,
	}
}

func TestSchedulerFiresAtETA(t *testing.T) {
	notifier := newRecordingNotifier()
	sched, err := NewScheduler(SchedulerParams{Notifier: notifier, Logger: testLogger()})
	require.NoError(t, err)

	conf := confirmation(time.Now().Add(20 * time.Millisecond))
	require.True(t, sched.Schedule(conf))
	require.True(t, sched.Schedule(conf))
	require.Equal(t, 1, sched.Pending())

	select {
	case notice := <-notifier.fired:
		require.Equal(t, conf.OrderID, notice.OrderID)
		require.Equal(t, int64(77), notice.UserID)
		require.False(t, notice.DeliveredAt.Before(conf.DeliveryETA.Add(-time.Millisecond).UTC()))
	case <-time.After(2 * time.Second):
		t.Fatal("delivery notice never fired")
	}
	require.Zero(t, sched.Pending())
}

func TestSchedulerPastETAFiresImmediately(t *testing.T) {
	notifier := newRecordingNotifier()
	sched, err := NewScheduler(SchedulerParams{Notifier: notifier, Logger: testLogger()})
	require.NoError(t, err)

	sched.Schedule(confirmation(time.Now().Add(-time.Minute)))
	select {
	case <-notifier.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("overdue notice never fired")
	}
}

func TestSchedulerShutdownDropsPendingTimers(t *testing.T) {
	notifier := newRecordingNotifier()
	sched, err := NewScheduler(SchedulerParams{Notifier: notifier, Logger: testLogger()})
	require.NoError(t, err)

	sched.Schedule(confirmation(time.Now().Add(time.Hour)))
	sched.Schedule(confirmation(time.Now().Add(time.Hour)))

	dropped, err := sched.Shutdown(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, dropped)
	require.True(t, notifier.closed)
	require.False(t, sched.Schedule(confirmation(time.Now())))
	require.Empty(t, notifier.notices)
}

func TestSchedulerCountsFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	notifier := newRecordingNotifier()
	notifier.err = errors.New("transport down")
	sched, err := NewScheduler(SchedulerParams{
		Notifier: notifier,
		Logger:   testLogger(),
		Metrics:  metrics.NewOrderMetrics(reg),
	})
	require.NoError(t, err)

	sched.Schedule(confirmation(time.Now()))
	<-notifier.fired
	_, err = sched.Shutdown(context.Background())
	require.NoError(t, err)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var failures float64
	for _, mf := range mfs {
		if mf.GetName() == "pieshop_delivery_notifications_total" {
			for _, m := range mf.GetMetric() {
				for _, label := range m.GetLabel() {
					if label.GetName() == "result" && label.GetValue() == "error" {
						failures = m.GetCounter().GetValue()
					}
				}
			}
		}
	}
	require.Equal(t, float64(1), failures)
}

type fakePublisher struct {
	channel string
	payload []byte
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message any) (int64, error) {
	f.channel = channel
	f.payload = message.([]byte)
	return 1, nil
}

func (f *fakePublisher) ChannelName(topic string) string {
	return "pf:notifications:" + topic
}

func TestRedisNotifierPublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	notifier := NewRedisNotifier(pub)
	conf := confirmation(time.Now())

	require.NoError(t, notifier.NotifyDelivered(context.Background(), noticeFor(conf, time.Now())))
	require.Equal(t, "pf:notifications:delivered", pub.channel)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.payload, &decoded))
	assert.Equal(t, conf.OrderID.String(), decoded["order_id"])
	assert.Equal(t, float64(77), decoded["user_id"])
	assert.Equal(t, "141", decoded["total"])
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaNotifierKeysByUser(t *testing.T) {
	writer := &fakeWriter{}
	notifier := newKafkaNotifier(writer, "pieshop.delivery")
	conf := confirmation(time.Now())

	require.NoError(t, notifier.NotifyDelivered(context.Background(), noticeFor(conf, time.Now())))
	require.Len(t, writer.msgs, 1)
	require.Equal(t, []byte("77"), writer.msgs[0].Key)
	require.True(t, bytes.Contains(writer.msgs[0].Value, []byte(conf.OrderID.String())))

	writer.err = errors.New("leader not available")
	err := notifier.NotifyDelivered(context.Background(), noticeFor(conf, time.Now()))
	require.ErrorContains(t, err, "pieshop.delivery")

	require.NoError(t, notifier.Close())
	require.True(t, writer.closed)
}

func TestNewNotifierSelectsBackend(t *testing.T) {
	logg := testLogger()

	n, err := NewNotifier("log", NotifierDeps{Logger: logg})
	require.NoError(t, err)
	require.Equal(t, "log", n.Name())
	require.NoError(t, n.NotifyDelivered(context.Background(), Notice{OrderID: uuid.New()}))

	_, err = NewNotifier("redis", NotifierDeps{Logger: logg})
	require.Error(t, err)

	_, err = NewNotifier("kafka", NotifierDeps{Logger: logg, Kafka: config.KafkaConfig{Topic: "t"}})
	require.Error(t, err)

	n, err = NewNotifier("kafka", NotifierDeps{Logger: logg, Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}})
	require.NoError(t, err)
	require.Equal(t, "kafka", n.Name())
	require.NoError(t, n.Close())

	_, err = NewNotifier("carrier-pigeon", NotifierDeps{Logger: logg})
	require.Error(t, err)
}
