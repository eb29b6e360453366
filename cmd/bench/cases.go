// README: Check cases for the routing, itinerary and chat endpoints, plus cache and load checks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

// expectation validates a decoded JSON body; it returns a failure note or "".
type expectation func(body map[string]any) string

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 60 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency.Round(time.Millisecond))
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name: "Env: Redis geocode cache reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: StatusSkip, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "API: health",
			Run: func(ctx context.Context, r *Runner) Result {
				start := time.Now()
				req, _ := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
				resp, err := r.httpc.Do(req)
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				defer resp.Body.Close()
				body, _ := io.ReadAll(resp.Body)
				if resp.StatusCode != http.StatusOK || string(body) != "OK" {
					return Result{Status: StatusFail, Note: fmt.Sprintf("status=%d body=%q", resp.StatusCode, body)}
				}
				return Result{Status: StatusPass, Latency: time.Since(start)}
			},
		},

		httpCase("Route: keyword request resolves both ends", base+"/location/get-route",
			`{"message":"plan a trip from Kolkata to Delhi"}`, http.StatusOK,
			func(body map[string]any) string {
				if !strings.HasPrefix(fmt.Sprint(body["reply"]), "Here's the best route") {
					return fmt.Sprintf("reply=%v", body["reply"])
				}
				return candidatesResolved(body)
			}),

		httpCase("Route: missing keyword answered in-band", base+"/location/get-route",
			`{"message":"I want to go somewhere"}`, http.StatusOK,
			func(body map[string]any) string {
				start, _ := body["start"].(map[string]any)
				if start["error"] != "Missing 'from' location" {
					return fmt.Sprintf("start=%v", start)
				}
				return ""
			}),

		httpCase("Route: invalid json -> 400", base+"/location/get-route", `{"message":`, http.StatusBadRequest, nil),

		httpCase("Route: unknown place -> not found", base+"/location/get-route",
			`{"message":"from Qwxzvplk to Delhi"}`, http.StatusOK,
			func(body map[string]any) string {
				start, _ := body["start"].(map[string]any)
				if start["error"] != "not found" {
					return fmt.Sprintf("start=%v", start)
				}
				return ""
			}),

		httpCase("Details: polyline decoded", base+"/location/get-details-route",
			`{"message":"from Kolkata to Delhi"}`, http.StatusOK,
			func(body map[string]any) string {
				points, _ := body["points"].([]any)
				if len(points) < 2 || body["status"] != "OK" {
					return fmt.Sprintf("points=%d status=%v", len(points), body["status"])
				}
				return ""
			}),

		r.llmCase(httpCase("Itinerary: structured reply", base+"/location/get-itinerary",
			`{"message":"Plan a 2-day trip to Rome"}`, http.StatusOK,
			func(body map[string]any) string {
				if errMsg, ok := body["error"]; ok {
					return fmt.Sprintf("error=%v", errMsg)
				}
				if _, ok := body["itinerary"].([]any); !ok {
					return "missing itinerary"
				}
				return ""
			})),

		r.llmCase(TestCase{
			Name: "Chat: first fragment over websocket",
			Run: func(ctx context.Context, r *Runner) Result {
				return chatRoundTrip(ctx, wsURL(base)+"/chat/ws")
			},
		}),

		{
			Name: "Concurrency: identical route requests agree",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentAgreement(ctx, r, base+"/location/get-route", `{"message":"from Paris to Berlin"}`)
			},
		},
		{
			Name: "Perf: get-route throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, base+"/location/get-route", `{"message":"from Kolkata to Delhi"}`)
			},
		},
	}
}

func (r *Runner) llmCase(tc TestCase) TestCase {
	if r.cfg.LLM {
		return tc
	}
	return TestCase{
		Name: tc.Name,
		Run: func(context.Context, *Runner) Result {
			return Result{Status: StatusSkip, Note: "llm=false"}
		},
	}
}

func httpCase(name, url, body string, wantStatus int, expect expectation) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			status, decoded, err := r.postJSON(ctx, url, body)
			latency := time.Since(start)
			if err != nil {
				return Result{Status: StatusFail, Latency: latency, Note: err.Error()}
			}
			if status != wantStatus {
				return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
			}
			if expect != nil {
				if note := expect(decoded); note != "" {
					return Result{Status: StatusFail, Latency: latency, Note: note}
				}
			}
			return Result{Status: StatusPass, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
		},
	}
}

func (r *Runner) postJSON(ctx context.Context, url, body string) (int, map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return resp.StatusCode, nil, fmt.Errorf("decode body: %w", err)
	}
	return resp.StatusCode, decoded, nil
}

func candidatesResolved(body map[string]any) string {
	for _, key := range []string{"start", "end"} {
		c, _ := body[key].(map[string]any)
		if c == nil || c["error"] != nil || c["latitude"] == nil {
			return fmt.Sprintf("%s=%v", key, c)
		}
	}
	return ""
}

func wsURL(base string) string {
	if rest, ok := strings.CutPrefix(base, "https://"); ok {
		return "wss://" + rest
	}
	return "ws://" + strings.TrimPrefix(base, "http://")
}

func chatRoundTrip(ctx context.Context, url string) Result {
	start := time.Now()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("Say hello in five words.")); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return Result{Status: StatusPass, Latency: time.Since(start), Note: fmt.Sprintf("first=%q", truncate(string(frame), 40))}
}

// concurrentAgreement fires the same request in parallel; geocoding must be deterministic
// whether or not the cache was warm.
func concurrentAgreement(ctx context.Context, r *Runner, url, body string) Result {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		replies = map[string]int{}
		errs    int
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, decoded, err := r.postJSON(ctx, url, body)
			mu.Lock()
			defer mu.Unlock()
			if err != nil || status != http.StatusOK {
				errs++
				return
			}
			key, _ := json.Marshal([]any{decoded["start"], decoded["end"]})
			replies[string(key)]++
		}()
	}
	wg.Wait()

	if errs > 0 {
		return Result{Status: StatusFail, Note: fmt.Sprintf("errors=%d", errs)}
	}
	if len(replies) != 1 {
		return Result{Status: StatusFail, Note: fmt.Sprintf("distinct answers=%d", len(replies))}
	}
	return Result{Status: StatusPass, Note: fmt.Sprintf("requests=%d", r.cfg.Concurrency)}
}

func perfLoad(ctx context.Context, r *Runner, url, body string) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				status, _, err := r.postJSON(ctx, url, body)
				mu.Lock()
				if err != nil || status != http.StatusOK {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
