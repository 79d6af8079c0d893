package main

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync/atomic"
	"time"
)

// newTargetHandler returns a load-test target. The path picks the response:
//
//	/ok       200 after 5-50ms
//	/flaky    200, but every fifth request gets a 503
//	/slow     200 after 200-500ms
//	/missing  404
//
// Any other path is a 404 as well.
func newTargetHandler() http.Handler {
	var flakyCount atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		sleepBetween(5, 50)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		sleepBetween(5, 50)
		if flakyCount.Add(1)%5 == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		sleepBetween(200, 500)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return mux
}

// sleepBetween simulates latency of minMs to maxMs milliseconds.
func sleepBetween(minMs, maxMs int) {
	time.Sleep(time.Duration(minMs+rand.IntN(maxMs-minMs+1)) * time.Millisecond)
}

// StartMockTarget serves the target handler on addr until the process exits.
// Call this in a goroutine before starting a run.
func StartMockTarget(addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newTargetHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("mock target error", "error", err)
	}
}
