package manager

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mosadd1X/novelforge-ai-sub003/monitor"
	"github.com/mosadd1X/novelforge-ai-sub003/probe"
	"github.com/mosadd1X/novelforge-ai-sub003/queue"
	"github.com/mosadd1X/novelforge-ai-sub003/resilience"
)

func upInterfaces() ([]net.Interface, error) {
	return []net.Interface{{Name: "eth0", Flags: net.FlagUp | net.FlagRunning}}, nil
}

type staticResolver struct{}

func (staticResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return []string{"192.0.2.1"}, nil
}

// newTestManager wires a manager against a local probe target so tests
// never touch the real network. The monitor interval is long; tests
// drive connectivity via ForceConnectivityCheck. A nil retryDelay means
// near-instant retries.
func newTestManager(t *testing.T, retryDelay func(int) time.Duration, opts ...Option) *Manager {
	t.Helper()

	if retryDelay == nil {
		retryDelay = func(int) time.Duration { return time.Millisecond }
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	prober := probe.New(probe.Config{
		ProbeURL:    server.URL,
		FallbackURL: server.URL,
		Timeout:     time.Second,
	},
		probe.WithInterfaceLister(upInterfaces),
		probe.WithResolver(staticResolver{}),
	)

	opts = append([]Option{WithProber(prober)}, opts...)
	m := New(Config{
		Monitor: monitor.Config{
			Interval:     time.Hour,
			ShutdownPoll: 10 * time.Millisecond,
		},
		Processor: queue.Config{
			PopWait:    20 * time.Millisecond,
			GatePause:  5 * time.Millisecond,
			RetryDelay: retryDelay,
		},
	}, opts...)

	m.Start()
	t.Cleanup(func() {
		if err := m.Shutdown(5 * time.Second); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	})

	if !m.ForceConnectivityCheck(context.Background()) {
		t.Fatal("test probe target unreachable")
	}
	return m
}

func TestManager_ExecuteReturnsResult(t *testing.T) {
	m := newTestManager(t, nil)

	result, err := m.Execute(context.Background(), 5*time.Second,
		func(ctx context.Context) (any, error) { return "chapter one", nil })
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result != "chapter one" {
		t.Errorf("result = %v, want chapter one", result)
	}
}

func TestManager_ExecutePropagatesTerminalError(t *testing.T) {
	m := newTestManager(t, nil)

	boom := errors.New("model refused")
	_, err := m.Execute(context.Background(), 5*time.Second,
		func(ctx context.Context) (any, error) { return nil, boom },
		WithMaxRetries(1))
	if !errors.Is(err, boom) {
		t.Errorf("Execute() error = %v, want the callable's error", err)
	}
}

func TestManager_ExecuteFailsFastWhenBreakerOpen(t *testing.T) {
	m := newTestManager(t, nil)

	for i := 0; i < 5; i++ {
		m.breaker.RecordResult(false)
	}

	var ran atomic.Bool
	_, err := m.Execute(context.Background(), time.Second,
		func(ctx context.Context) (any, error) { ran.Store(true); return nil, nil })
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("Execute() error = %v, want ErrCircuitOpen", err)
	}
	if ran.Load() {
		t.Error("callable ran despite fail-fast rejection")
	}
	if m.Status().Queue.Queued != 0 {
		t.Error("rejected request was queued anyway")
	}
}

func TestManager_ExecuteTimesOutWhileRetrying(t *testing.T) {
	m := newTestManager(t, func(int) time.Duration { return 30 * time.Millisecond })

	var attempts atomic.Int32
	_, err := m.Execute(context.Background(), 40*time.Millisecond,
		func(ctx context.Context) (any, error) {
			attempts.Add(1)
			return nil, errors.New("still down")
		},
		WithMaxRetries(3))
	if !errors.Is(err, resilience.ErrWaitTimeout) {
		t.Fatalf("Execute() error = %v, want ErrWaitTimeout", err)
	}

	// The request keeps retrying in the background after the caller
	// gave up; its eventual result is dropped.
	deadline := time.After(5 * time.Second)
	for attempts.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("background retries stopped after wait timeout")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestManager_ExecuteObservesContextCancel(t *testing.T) {
	m := newTestManager(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	block := make(chan struct{})
	defer close(block)

	errs := make(chan error, 1)
	go func() {
		_, err := m.Execute(ctx, time.Minute,
			func(ctx context.Context) (any, error) { <-block; return nil, nil })
		errs <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Execute() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not observe cancellation")
	}
}

func TestManager_QueueRequestDefaultsToNormalPriority(t *testing.T) {
	m := newTestManager(t, nil)

	results := make(chan *queue.Request, 1)
	_, err := m.QueueRequest(
		func(ctx context.Context) (any, error) { return nil, nil },
		func(req *queue.Request, result any, err error) { results <- req })
	if err != nil {
		t.Fatalf("QueueRequest() error = %v", err)
	}

	select {
	case req := <-results:
		if req.Priority != queue.PriorityNormal {
			t.Errorf("priority = %v, want Normal by default", req.Priority)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("request never completed")
	}
}

func TestManager_CancelRequest(t *testing.T) {
	m := newTestManager(t, nil)

	// Open the breaker so the request stays queued.
	for i := 0; i < 5; i++ {
		m.breaker.RecordResult(false)
	}

	id, err := m.QueueRequest(
		func(ctx context.Context) (any, error) { return nil, nil }, nil,
		WithID("doomed"))
	if err != nil {
		t.Fatalf("QueueRequest() error = %v", err)
	}
	if id != "doomed" {
		t.Fatalf("id = %q, want the one set via WithID", id)
	}
	if !m.CancelRequest(id) {
		t.Error("CancelRequest = false for a queued request")
	}
	if m.Status().Queue.Queued != 0 {
		t.Error("cancelled request still queued")
	}
}

func TestManager_IsHealthy(t *testing.T) {
	m := newTestManager(t, nil)

	if !m.IsHealthy() {
		t.Fatal("IsHealthy = false with network up and breaker closed")
	}

	for i := 0; i < 5; i++ {
		m.breaker.RecordResult(false)
	}
	if m.IsHealthy() {
		t.Error("IsHealthy = true with the breaker open")
	}

	m.breaker.Reset()
	if !m.IsHealthy() {
		t.Error("IsHealthy = false after breaker reset")
	}
}

func TestManager_StatusSnapshot(t *testing.T) {
	m := newTestManager(t, nil)

	_, err := m.Execute(context.Background(), 5*time.Second,
		func(ctx context.Context) (any, error) { return nil, nil })
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	snap := m.Status()
	if snap.Network != monitor.StatusConnected {
		t.Errorf("Network = %v, want connected", snap.Network)
	}
	if snap.Breaker.State != resilience.StateClosed {
		t.Errorf("Breaker.State = %v, want closed", snap.Breaker.State)
	}
	if snap.Queue.Succeeded != 1 {
		t.Errorf("Queue.Succeeded = %d, want 1", snap.Queue.Succeeded)
	}
	if snap.Metrics.TotalRequests != 1 {
		t.Errorf("Metrics.TotalRequests = %d, want 1", snap.Metrics.TotalRequests)
	}
	if len(snap.History) == 0 {
		t.Error("History is empty, want at least the startup transitions")
	}
}

func TestManager_BreakerTransitionsReachCallback(t *testing.T) {
	var transitions atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	prober := probe.New(probe.Config{ProbeURL: server.URL, FallbackURL: server.URL, Timeout: time.Second},
		probe.WithInterfaceLister(upInterfaces),
		probe.WithResolver(staticResolver{}),
	)

	m := New(Config{
		Breaker: resilience.CircuitBreakerConfig{
			OnStateChange: func(from, to resilience.State) { transitions.Add(1) },
		},
	}, WithProber(prober))

	for i := 0; i < 5; i++ {
		m.breaker.RecordResult(false)
	}
	if transitions.Load() != 1 {
		t.Errorf("caller callback fired %d times, want 1", transitions.Load())
	}
}

func TestManager_ShutdownIsBounded(t *testing.T) {
	m := newTestManager(t, nil)

	start := time.Now()
	if err := m.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Shutdown took %v, want prompt exit", elapsed)
	}
	// Second shutdown is a no-op on the already-stopped group.
	if err := m.Shutdown(time.Second); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}
