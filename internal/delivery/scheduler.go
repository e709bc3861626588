package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pieshop-backend/internal/orders"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
	"github.com/angelmondragon/pieshop-backend/pkg/metrics"
)

const defaultNotifyTimeout = 10 * time.Second

// SchedulerParams configure the delivery scheduler.
type SchedulerParams struct {
	Notifier      Notifier
	Logger        *logger.Logger
	Metrics       *metrics.OrderMetrics
	NotifyTimeout time.Duration
	Now           func() time.Time
}

// Scheduler arms one in-memory timer per confirmed order. Timers are not
// persisted: notices still pending when the process exits are lost.
type Scheduler struct {
	notifier Notifier
	logg     *logger.Logger
	metrics  *metrics.OrderMetrics
	timeout  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	timers   map[uuid.UUID]*time.Timer
	inflight sync.WaitGroup
	closed   bool
}

func NewScheduler(params SchedulerParams) (*Scheduler, error) {
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := params.NotifyTimeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		notifier: params.Notifier,
		logg:     params.Logger,
		metrics:  params.Metrics,
		timeout:  timeout,
		now:      now,
		timers:   make(map[uuid.UUID]*time.Timer),
	}, nil
}

// Schedule arms the delivered notice for the confirmation's ETA. It reports
// false once Shutdown has been called.
func (s *Scheduler) Schedule(confirmation orders.OrderConfirmation) bool {
	delay := confirmation.DeliveryETA.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if _, exists := s.timers[confirmation.OrderID]; exists {
		return true
	}
	s.timers[confirmation.OrderID] = time.AfterFunc(delay, func() {
		s.fire(confirmation)
	})
	return true
}

// Pending reports how many notices are armed but not yet fired.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) fire(confirmation orders.OrderConfirmation) {
	s.mu.Lock()
	if _, armed := s.timers[confirmation.OrderID]; !armed || s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.timers, confirmation.OrderID)
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id": confirmation.OrderID.String(),
		"notifier": s.notifier.Name(),
	})
	ctx = s.logg.WithUserID(ctx, confirmation.UserID)

	err := s.notifier.NotifyDelivered(ctx, noticeFor(confirmation, s.now().UTC()))
	s.metrics.ObserveDelivery(s.notifier.Name(), err)
	if err != nil {
		s.logg.Error(ctx, "delivery notification failed", err)
	}
}

// Shutdown stops armed timers, waits for notices already being sent and
// closes the notifier. It returns the number of notices dropped.
func (s *Scheduler) Shutdown(ctx context.Context) (int, error) {
	s.mu.Lock()
	s.closed = true
	dropped := 0
	for id, timer := range s.timers {
		if timer.Stop() {
			dropped++
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return dropped, ctx.Err()
	}

	if dropped > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "dropped", dropped), "delivery scheduler stopped with pending notices")
	}
	return dropped, s.notifier.Close()
}
