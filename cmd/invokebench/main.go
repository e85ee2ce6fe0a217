// Command invokebench drives POST /invoke/instance on a running runner and
// reports throughput and latency.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joeydtaylor/steeze-runner/pkg/codec"
)

func main() {
	var (
		addr        = flag.String("addr", "http://127.0.0.1:12345", "Runner base URL.")
		payload     = flag.String("payload", `{"hello":"world"}`, "JSON payload sent with every call.")
		concurrency = flag.Int("concurrency", 1, "Concurrent callers.")
		duration    = flag.Duration("duration", 10*time.Second, "How long to run.")
		requests    = flag.Int("requests", 0, "Stop after this many calls (0 = run for -duration).")
		token       = flag.String("token", os.Getenv("INVOKE_BEARER_TOKEN"), "Bearer token for guarded runners.")
	)
	flag.Parse()

	var probe any
	if err := codec.JSON.Unmarshal([]byte(*payload), &probe); err != nil {
		log.Fatalf("[FATAL] -payload is not JSON: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	client := &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: *concurrency}}
	if *token != "" {
		client.Transport = bearer{token: *token, next: client.Transport}
	}

	log.Printf("[INFO] Start running for %s with concurrency of %d", *duration, *concurrency)
	start := time.Now()
	calls := drive(ctx, client, benchConfig{
		URL:         strings.TrimRight(*addr, "/") + "/invoke/instance",
		Payload:     []byte(*payload),
		Concurrency: *concurrency,
		Requests:    *requests,
	})
	elapsed := time.Since(start)
	fmt.Printf("Benchmark runs for %v, %d calls\n", elapsed, len(calls))
	summarize(calls, elapsed).print(os.Stdout)
}

type bearer struct {
	token string
	next  http.RoundTripper
}

func (b bearer) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+b.token)
	return b.next.RoundTrip(r)
}
