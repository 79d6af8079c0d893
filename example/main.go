package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jpalmerr/volley"
)

func main() {
	// start mock target (see mock_server.go)
	go StartMockTarget(":9999")
	time.Sleep(100 * time.Millisecond)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ok, err := volley.NewJob("http://localhost:9999/ok", volley.WithIterations(500))
	if err != nil {
		logger.Error("failed to create job", "error", err)
		os.Exit(1)
	}
	flaky, _ := volley.NewJob("http://localhost:9999/flaky",
		volley.WithMethod(http.MethodPost),
		volley.WithIterations(200),
		volley.WithHeader("X-Request-Id", "RANDOM"),
		volley.WithRandomize(true),
	)
	slow, _ := volley.NewJob("http://localhost:9999/slow",
		volley.WithIterations(20),
		volley.WithDelay(10*time.Millisecond),
	)
	missing, _ := volley.NewJob("http://localhost:9999/missing", volley.WithIterations(30))

	// tally status codes as outcomes arrive
	var (
		mu     sync.Mutex
		byCode = make(map[int]int)
	)

	r, err := volley.New(
		volley.WithJobs(ok, flaky, slow, missing),
		volley.WithPoolSize(50),
		volley.WithTimeout(2*time.Second),
		volley.WithLogger(logger),
		volley.WithSignalHandling(true),
		volley.WithOutcomeCallback(func(o volley.Outcome) {
			mu.Lock()
			byCode[o.StatusCode]++
			mu.Unlock()
		}),
	)
	if err != nil {
		logger.Error("failed to create runner", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  Volley Demo")
	fmt.Printf("  Sending %d requests to a mock target on :9999\n", r.Requested())
	fmt.Println("  Press Ctrl+C to stop early")
	fmt.Println()

	rep, err := r.Run(context.Background())
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	if err := rep.Render(os.Stdout, "summary", true); err != nil {
		logger.Error("failed to render report", "error", err)
		os.Exit(1)
	}

	mu.Lock()
	defer mu.Unlock()
	fmt.Println()
	for _, code := range []int{http.StatusOK, http.StatusNotFound, http.StatusServiceUnavailable} {
		fmt.Printf("  %d: %d\n", code, byCode[code])
	}
}
