package main

import (
	"context"
	"crypto/tls"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// newClient returns a client with its own cookie jar that reports redirects instead of following them
func newClient(insecure bool) *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Jar: jar,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure},
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Timeout: 10 * time.Second,
	}
}

// postForm submits a form and discards the body
func postForm(client *http.Client, target string, form url.Values) (int, error) {
	resp, err := client.PostForm(target, form)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// signUp registers a fresh account and logs it in; the session ends up in the client's jar
func signUp(client *http.Client, server, username string) error {
	form := url.Values{"username": {username}, "password": {"load-test"}}
	if code, err := postForm(client, server+"/auth/register", form); err != nil || code != http.StatusFound {
		return fmt.Errorf("register %s: status=%d err=%v", username, code, err)
	}
	if code, err := postForm(client, server+"/auth/login", form); err != nil || code != http.StatusFound {
		return fmt.Errorf("login %s: status=%d err=%v", username, code, err)
	}
	return nil
}

func main() {
	// --- Command-line flags ---
	var server string
	var duration int
	var concurrency int
	var csvFile string
	var trimPercent float64
	var readRatio int
	var insecure bool

	flag.StringVar(&server, "server", "http://localhost:8080", "server base URL")
	flag.IntVar(&duration, "duration", 30, "duration in seconds")
	flag.IntVar(&concurrency, "c", 50, "number of concurrent goroutines / users")
	flag.StringVar(&csvFile, "csv", "latencies.csv", "CSV file to save latencies")
	flag.Float64Var(&trimPercent, "trim", 1.0, "percent of latency to trim from top and bottom for trimmed mean")
	flag.IntVar(&readRatio, "reads", 4, "index page reads per created post")
	flag.BoolVar(&insecure, "insecure", false, "skip TLS verification for self-signed certs")
	flag.Parse()
	server = strings.TrimRight(server, "/")

	// --- Create and log in one user per goroutine ---
	fmt.Printf("Creating %d users...\n", concurrency)
	clients := make([]*http.Client, concurrency)
	for i := 0; i < concurrency; i++ {
		clients[i] = newClient(insecure)
		username := fmt.Sprintf("load-user-%d-%d", i, time.Now().UnixNano())
		if err := signUp(clients[i], server, username); err != nil {
			panic(fmt.Sprintf("failed to create user: %v", err))
		}
	}
	fmt.Println("Users created.")

	// --- Prepare concurrency test ---
	stopTime := time.Now().Add(time.Duration(duration) * time.Second)
	var wg sync.WaitGroup

	// Atomic counters for thread-safe tracking
	var requests int64
	var successes int64
	var errors4xx int64
	var errors5xx int64

	latencySlices := make([][]float64, concurrency) // each goroutine records latencies

	// --- Start concurrent goroutines for load test ---
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			client := clients[idx]
			var localLatencies []float64

			// Alternate index reads and post creation until the test duration ends
			for n := 0; time.Now().Before(stopTime); n++ {
				var req *http.Request
				if readRatio > 0 && n%(readRatio+1) != 0 {
					req, _ = http.NewRequestWithContext(context.Background(), http.MethodGet, server+"/", nil)
				} else {
					form := url.Values{
						"title": {fmt.Sprintf("load test %d", time.Now().UnixNano())},
						"body":  {"generated by http_load"},
					}
					req, _ = http.NewRequestWithContext(context.Background(), http.MethodPost, server+"/create", strings.NewReader(form.Encode()))
					req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				}

				start := time.Now()
				resp, err := client.Do(req)
				lat := time.Since(start).Seconds() * 1000 // latency in ms
				localLatencies = append(localLatencies, lat)
				atomic.AddInt64(&requests, 1)

				if err != nil {
					fmt.Printf("Request error: %v\n", err)
					continue
				}

				// A redirect after POST counts as success
				switch {
				case resp.StatusCode < 400:
					atomic.AddInt64(&successes, 1)
				case resp.StatusCode < 500:
					atomic.AddInt64(&errors4xx, 1)
				default:
					atomic.AddInt64(&errors5xx, 1)
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}

			latencySlices[idx] = localLatencies
		}(i)
	}

	wg.Wait()

	// --- Merge all latencies ---
	var allLatencies []float64
	for _, slice := range latencySlices {
		allLatencies = append(allLatencies, slice...)
	}
	sort.Float64s(allLatencies)

	// --- Compute statistics ---
	trimmedMeanVal := trimmedMean(allLatencies, trimPercent)
	p50 := percentile(allLatencies, 50)
	p90 := percentile(allLatencies, 90)
	p99 := percentile(allLatencies, 99)

	fmt.Printf("Requests: %d  Successes: %d  4xx: %d  5xx: %d\n", requests, successes, errors4xx, errors5xx)
	fmt.Printf("Latency (ms): trimmed_mean=%.2f p50=%.2f p90=%.2f p99=%.2f\n", trimmedMeanVal, p50, p90, p99)

	// --- Save latencies to CSV ---
	f, err := os.Create(csvFile)
	if err != nil {
		fmt.Printf("Failed to create CSV file: %v\n", err)
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	w.Write([]string{"latency_ms"})
	for _, d := range allLatencies {
		w.Write([]string{fmt.Sprintf("%.3f", d)})
	}
	fmt.Printf("Saved latencies to %s\n", csvFile)
}

// trimmedMean calculates mean latency after trimming top/bottom trimPercent values
func trimmedMean(data []float64, trimPercent float64) float64 {
	if len(data) == 0 {
		return 0
	}
	trim := int(float64(len(data)) * trimPercent / 100.0)
	if trim*2 >= len(data) {
		trim = (len(data) - 1) / 2
	}
	trimmed := data[trim : len(data)-trim]
	var sum float64
	for _, v := range trimmed {
		sum += v
	}
	return sum / float64(len(trimmed))
}

// percentile interpolates the p-th percentile from sorted data
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	k := (p / 100.0) * float64(len(data)-1)
	lo := int(k)
	hi := lo + 1
	if hi >= len(data) {
		return data[len(data)-1]
	}
	return data[lo]*(float64(hi)-k) + data[hi]*(k-float64(lo))
}
