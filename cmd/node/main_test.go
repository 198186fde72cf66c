package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/cluster"
)

func TestRegisterRetries(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(cluster.RegisterResponse{Status: "registered", ChunkSize: 4096})
		}))
		defer ts.Close()

		fatalCalled := false
		origLogFatal := logFatal
		logFatal = func(format string, v ...any) { fatalCalled = true }
		defer func() { logFatal = origLogFatal }()

		register(context.Background(), cluster.NewClient(ts.URL), "node-1", "http://localhost:8001")

		if fatalCalled {
			t.Error("register gave up despite the coordinator recovering")
		}
		if got := calls.Load(); got != 4 {
			t.Errorf("register made %d attempts, want 4", got)
		}
	})

	t.Run("fatal after exhausting retries", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		fatalCalled := false
		origLogFatal := logFatal
		logFatal = func(format string, v ...any) { fatalCalled = true }
		defer func() { logFatal = origLogFatal }()

		register(context.Background(), cluster.NewClient(ts.URL), "node-1", "http://localhost:8001")

		if !fatalCalled {
			t.Error("register must be fatal when the coordinator never answers")
		}
	})
}
