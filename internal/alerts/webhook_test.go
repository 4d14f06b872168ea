package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testEvent() Event {
	return newEvent(EventTriggered, Reading{
		Metric:    MetricLag,
		Level:     LevelWarning,
		Value:     62.5,
		Threshold: 50,
	}, LevelNone, time.Unix(1000, 0))
}

func TestWebhookSink_Deliver(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		var e Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if e.Metric != MetricLag {
			t.Errorf("metric = %s", e.Metric)
		}
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(DefaultWebhookConfig(srv.URL))
	if err := sink.Deliver(context.Background(), testEvent()); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if received.Load() != 1 {
		t.Errorf("requests = %d, want 1", received.Load())
	}
}

func TestWebhookSink_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(WebhookConfig{
		URL:            srv.URL,
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
	if err := sink.Deliver(context.Background(), testEvent()); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestWebhookSink_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sink := NewWebhookSink(WebhookConfig{
		URL:            srv.URL,
		InitialBackoff: time.Millisecond,
	})
	if err := sink.Deliver(context.Background(), testEvent()); err == nil {
		t.Fatal("expected an error for a 400 response")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retries)", calls.Load())
	}
}

func TestWebhookSink_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sink := NewWebhookSink(WebhookConfig{
		URL:            srv.URL,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
	if err := sink.Deliver(context.Background(), testEvent()); err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls.Load())
	}
}

func TestWebhookSink_ContextCancelStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewWebhookSink(WebhookConfig{
		URL:            srv.URL,
		MaxRetries:     5,
		InitialBackoff: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sink.Deliver(ctx, testEvent()) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected a cancellation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("deliver did not return after cancellation")
	}
}
