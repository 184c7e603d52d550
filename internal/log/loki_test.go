package log

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewLokiWriterDefaults(t *testing.T) {
	lw, err := NewLokiWriter(LokiConfig{
		Endpoint: "http://localhost:3100/loki/api/v1/push",
	})
	if err != nil {
		t.Fatalf("NewLokiWriter failed: %v", err)
	}
	defer lw.Close()

	if lw.batchSize != 100 {
		t.Errorf("Expected default batch size 100, got %d", lw.batchSize)
	}
	if lw.flushInterval != 5*time.Second {
		t.Errorf("Expected default flush interval 5s, got %v", lw.flushInterval)
	}
	if lw.labels["job"] != "ipdisp-client" {
		t.Errorf("Expected default job label 'ipdisp-client', got %s", lw.labels["job"])
	}
}

func TestNewLokiWriterInvalidFlushInterval(t *testing.T) {
	_, err := NewLokiWriter(LokiConfig{
		Endpoint:      "http://localhost:3100/loki/api/v1/push",
		FlushInterval: "invalid",
	})
	if err == nil {
		t.Error("Expected error for invalid flush interval, got nil")
	}
}

func TestLokiWriterWriteAfterClose(t *testing.T) {
	lw, err := NewLokiWriter(LokiConfig{
		Endpoint:  "http://localhost:3100/loki/api/v1/push",
		BatchSize: 10,
	})
	if err != nil {
		t.Fatalf("NewLokiWriter failed: %v", err)
	}

	lw.Close()

	if _, err = lw.Write([]byte("test")); err == nil {
		t.Error("Expected error when writing after close, got nil")
	}
}

func TestLokiWriterBatchFlush(t *testing.T) {
	var requestCount atomic.Int32
	var receivedBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		if r.Method != "POST" {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
		}
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	lw, err := NewLokiWriter(LokiConfig{
		Endpoint:  server.URL,
		Labels:    map[string]string{"service": "test"},
		BatchSize: 3,
	})
	if err != nil {
		t.Fatalf("NewLokiWriter failed: %v", err)
	}
	defer lw.Close()

	for i := 0; i < 3; i++ {
		if _, err := lw.Write([]byte(fmt.Sprintf("log message %d\n", i))); err != nil {
			t.Errorf("Write failed: %v", err)
		}
	}

	time.Sleep(100 * time.Millisecond)

	if requestCount.Load() < 1 {
		t.Fatalf("Expected at least 1 request, got %d", requestCount.Load())
	}

	var pushReq lokiPushRequest
	if err := json.Unmarshal(receivedBody, &pushReq); err != nil {
		t.Fatalf("Failed to parse request body: %v", err)
	}
	if len(pushReq.Streams) != 1 {
		t.Fatalf("Expected 1 stream, got %d", len(pushReq.Streams))
	}
	if pushReq.Streams[0].Stream["service"] != "test" {
		t.Errorf("Expected service label 'test', got %s", pushReq.Streams[0].Stream["service"])
	}
	if len(pushReq.Streams[0].Values) != 3 {
		t.Errorf("Expected 3 values, got %d", len(pushReq.Streams[0].Values))
	}
}

func TestLokiWriterCloseFlushesRemainder(t *testing.T) {
	var requestCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	lw, err := NewLokiWriter(LokiConfig{
		Endpoint:      server.URL,
		BatchSize:     100,
		FlushInterval: "10s",
	})
	if err != nil {
		t.Fatalf("NewLokiWriter failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := lw.Write([]byte(fmt.Sprintf("log %d\n", i))); err != nil {
			t.Errorf("Write failed: %v", err)
		}
	}

	lw.Close()

	if requestCount.Load() != 1 {
		t.Errorf("Expected 1 request on close, got %d", requestCount.Load())
	}
}

func TestLokiWriterRetry(t *testing.T) {
	var attemptCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attemptCount.Add(1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
		} else {
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	lw, err := NewLokiWriter(LokiConfig{
		Endpoint:  server.URL,
		BatchSize: 1,
	})
	if err != nil {
		t.Fatalf("NewLokiWriter failed: %v", err)
	}
	defer lw.Close()

	if _, err := lw.Write([]byte("test log\n")); err != nil {
		t.Errorf("Write failed: %v", err)
	}

	time.Sleep(500 * time.Millisecond)

	if attemptCount.Load() < 2 {
		t.Errorf("Expected at least 2 attempts, got %d", attemptCount.Load())
	}
}
