package genai

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mosadd1X/novelforge-ai-sub003/cache"
	"github.com/mosadd1X/novelforge-ai-sub003/manager"
	"github.com/mosadd1X/novelforge-ai-sub003/queue"
	"github.com/mosadd1X/novelforge-ai-sub003/resilience"
)

// fakeExec runs callables inline, standing in for the manager facade.
type fakeExec struct {
	healthy  atomic.Bool
	executed atomic.Int64
}

func newFakeExec() *fakeExec {
	f := &fakeExec{}
	f.healthy.Store(true)
	return f
}

func (f *fakeExec) Execute(ctx context.Context, timeout time.Duration, call queue.Callable, opts ...manager.RequestOption) (any, error) {
	f.executed.Add(1)
	return call(ctx)
}

func (f *fakeExec) QueueRequest(call queue.Callable, done queue.Handler, opts ...manager.RequestOption) (string, error) {
	f.executed.Add(1)
	result, err := call(context.Background())
	if done != nil {
		done(&queue.Request{ID: "queued-1"}, result, err)
	}
	return "queued-1", nil
}

func (f *fakeExec) IsHealthy() bool { return f.healthy.Load() }

func newResilientUnderTest(t *testing.T, invoke InvokeFunc, opts ...ResilientOption) (*ResilientClient, *fakeExec) {
	t.Helper()

	pool := testPool(t, "k1")
	client, err := NewClient(pool, invoke, Config{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	client.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	exec := newFakeExec()
	store := cache.NewMemoryCache(64)
	opts = append([]ResilientOption{WithCache(store, cache.Policy{DefaultTTL: time.Minute})}, opts...)
	rc, err := NewResilientClient(client, exec, ResilientConfig{WaitTimeout: 5 * time.Second}, opts...)
	if err != nil {
		t.Fatalf("NewResilientClient() error = %v", err)
	}
	return rc, exec
}

func TestResilientClient_CacheHitSkipsNetwork(t *testing.T) {
	var invokes atomic.Int64
	rc, exec := newResilientUnderTest(t, func(ctx context.Context, cred Credential, req Request) (Response, error) {
		invokes.Add(1)
		return NewTextResponse("generated once"), nil
	})

	req := Request{Model: "gemini-2.0-flash", Prompt: "describe the castle"}
	first, err := rc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	second, err := rc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}

	if first.Text() != second.Text() {
		t.Errorf("cached response differs: %q vs %q", first.Text(), second.Text())
	}
	if invokes.Load() != 1 {
		t.Errorf("invokes = %d, want 1 (second call served from cache)", invokes.Load())
	}
	if exec.executed.Load() != 1 {
		t.Errorf("facade executions = %d, want 1", exec.executed.Load())
	}
}

func TestResilientClient_DistinctPromptsMiss(t *testing.T) {
	var invokes atomic.Int64
	rc, _ := newResilientUnderTest(t, func(ctx context.Context, cred Credential, req Request) (Response, error) {
		invokes.Add(1)
		return NewTextResponse(req.Prompt), nil
	})

	if _, err := rc.Generate(context.Background(), Request{Model: "m", Prompt: "chapter 1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := rc.Generate(context.Background(), Request{Model: "m", Prompt: "chapter 2"}); err != nil {
		t.Fatal(err)
	}
	if invokes.Load() != 2 {
		t.Errorf("invokes = %d, want 2 (different prompts must not share a key)", invokes.Load())
	}
}

func TestResilientClient_OfflineServesCachedResponse(t *testing.T) {
	rc, exec := newResilientUnderTest(t, func(ctx context.Context, cred Credential, req Request) (Response, error) {
		return NewTextResponse("warm"), nil
	})

	req := Request{Model: "m", Prompt: "warm the cache"}
	if _, err := rc.Generate(context.Background(), req); err != nil {
		t.Fatalf("warmup Generate() error = %v", err)
	}

	exec.healthy.Store(false)
	resp, err := rc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("offline Generate() error = %v, want cached response", err)
	}
	if resp.Text() != "warm" {
		t.Errorf("Text() = %q, want the cached response", resp.Text())
	}
}

func TestResilientClient_OfflineMissFailsFast(t *testing.T) {
	var invokes atomic.Int64
	rc, exec := newResilientUnderTest(t, func(ctx context.Context, cred Credential, req Request) (Response, error) {
		invokes.Add(1)
		return NewTextResponse("x"), nil
	})

	exec.healthy.Store(false)
	_, err := rc.Generate(context.Background(), Request{Model: "m", Prompt: "never cached"})
	if !errors.Is(err, resilience.ErrNetworkUnavailable) {
		t.Fatalf("Generate() error = %v, want ErrNetworkUnavailable", err)
	}
	if invokes.Load() != 0 {
		t.Error("network call attempted while offline")
	}
}

func TestResilientClient_GenerateAsyncCachesResult(t *testing.T) {
	rc, _ := newResilientUnderTest(t, func(ctx context.Context, cred Credential, req Request) (Response, error) {
		return NewTextResponse("async result"), nil
	})

	delivered := make(chan Response, 1)
	id, err := rc.GenerateAsync(Request{Model: "m", Prompt: "background chapter"},
		func(resp Response, err error) {
			if err != nil {
				t.Errorf("async error = %v", err)
			}
			delivered <- resp
		})
	if err != nil {
		t.Fatalf("GenerateAsync() error = %v", err)
	}
	if id == "" {
		t.Error("GenerateAsync returned empty ID")
	}

	select {
	case resp := <-delivered:
		if resp.Text() != "async result" {
			t.Errorf("Text() = %q", resp.Text())
		}
	case <-time.After(time.Second):
		t.Fatal("async handler never ran")
	}

	// A later synchronous call for the same request hits the cache.
	resp, err := rc.Generate(context.Background(), Request{Model: "m", Prompt: "background chapter"})
	if err != nil || resp.Text() != "async result" {
		t.Errorf("Generate() = (%q, %v), want the async-cached response", resp.Text(), err)
	}
}

func TestResilientClient_BulkheadRejectionSurfaces(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	rc, _ := newResilientUnderTest(t, func(ctx context.Context, cred Credential, req Request) (Response, error) {
		close(started)
		<-release
		return NewTextResponse("slow"), nil
	}, WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 1})))

	go rc.Generate(context.Background(), Request{Model: "m", Prompt: "holds the slot"})
	<-started

	_, err := rc.Generate(context.Background(), Request{Model: "m", Prompt: "rejected"})
	if !errors.Is(err, resilience.ErrBulkheadFull) {
		t.Errorf("Generate() error = %v, want ErrBulkheadFull", err)
	}
	close(release)
}

func TestResilientClient_ErrorsAreNotCached(t *testing.T) {
	var invokes atomic.Int64
	rc, _ := newResilientUnderTest(t, func(ctx context.Context, cred Credential, req Request) (Response, error) {
		if invokes.Add(1) == 1 {
			return Response{}, &APIError{StatusCode: 400, Message: "bad prompt"}
		}
		return NewTextResponse("recovered"), nil
	})

	req := Request{Model: "m", Prompt: "flaky"}
	if _, err := rc.Generate(context.Background(), req); err == nil {
		t.Fatal("first Generate() succeeded, want error")
	}
	resp, err := rc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}
	if resp.Text() != "recovered" {
		t.Errorf("Text() = %q, want the fresh call's response", resp.Text())
	}
}
