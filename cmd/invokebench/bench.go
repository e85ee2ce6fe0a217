package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeydtaylor/steeze-runner/pkg/codec"
	"github.com/joeydtaylor/steeze-runner/pkg/core"
	"github.com/montanaflynn/stats"
)

type call struct {
	status int
	kind   string
	ok     bool
	d      time.Duration
}

type benchConfig struct {
	URL         string
	Payload     []byte
	Concurrency int
	Requests    int // 0 = until ctx is done
}

// drive issues invocations from Concurrency workers until ctx ends or
// Requests calls have been made.
func drive(ctx context.Context, client *http.Client, c benchConfig) []call {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	var (
		issued atomic.Int64
		mu     sync.Mutex
		calls  = make([]call, 0, 1024)
		wg     sync.WaitGroup
	)
	for i := 0; i < c.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]call, 0, 128)
			for ctx.Err() == nil {
				if c.Requests > 0 && issued.Add(1) > int64(c.Requests) {
					break
				}
				local = append(local, invokeOnce(ctx, client, c.URL, c.Payload))
			}
			mu.Lock()
			calls = append(calls, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return calls
}

func invokeOnce(ctx context.Context, client *http.Client, url string, payload []byte) call {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return call{kind: "client_error", d: time.Since(start)}
	}
	req.Header.Set("Content-Type", codec.JSON.ContentType())

	resp, err := client.Do(req)
	if err != nil {
		return call{kind: "transport_error", d: time.Since(start)}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	c := call{status: resp.StatusCode, d: time.Since(start)}
	if err != nil {
		c.kind = "transport_error"
		return c
	}

	var ir core.InvokeResponse
	if err := codec.JSONStrict.Unmarshal(body, &ir); err != nil {
		c.kind = "bad_response"
		return c
	}
	c.ok = resp.StatusCode == http.StatusOK && ir.Status == "success"
	if !c.ok {
		c.kind = ir.Kind
		if c.kind == "" {
			c.kind = fmt.Sprintf("http_%d", resp.StatusCode)
		}
	}
	return c
}

type summary struct {
	Total      int
	Succeeded  int
	Failures   map[string]int
	Throughput float64 // calls per second
	Median     time.Duration
	P99        time.Duration
}

func summarize(calls []call, elapsed time.Duration) summary {
	s := summary{Total: len(calls), Failures: map[string]int{}}
	latencies := make([]float64, 0, len(calls))
	for _, c := range calls {
		if c.ok {
			s.Succeeded++
			latencies = append(latencies, float64(c.d.Microseconds()))
		} else {
			s.Failures[c.kind]++
		}
	}
	if elapsed > 0 {
		s.Throughput = float64(s.Total) / elapsed.Seconds()
	}
	if len(latencies) > 0 {
		median, _ := stats.Median(latencies)
		p99, _ := stats.Percentile(latencies, 99.0)
		s.Median = time.Duration(median) * time.Microsecond
		s.P99 = time.Duration(p99) * time.Microsecond
	}
	return s
}

func (s summary) print(w io.Writer) {
	if s.Total == 0 {
		fmt.Fprintln(w, "No results")
		return
	}
	fmt.Fprintf(w, "Throughput: %.1f requests per sec\n", s.Throughput)
	fmt.Fprintf(w, "Succeeded: %d/%d\n", s.Succeeded, s.Total)
	for kind, n := range s.Failures {
		fmt.Fprintf(w, "Failed (%s): %d (%.2f%%)\n", kind, n, 100*float64(n)/float64(s.Total))
	}
	if s.Succeeded > 0 {
		fmt.Fprintf(w, "Latency: median = %.3fms, tail (p99) = %.3fms\n",
			float64(s.Median.Microseconds())/1000, float64(s.P99.Microseconds())/1000)
	}
}
