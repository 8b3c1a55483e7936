package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type options struct {
	Sources   []struct{ Tag string } `json:"sources"`
	Countries []string               `json:"countries"`
	MaxCutoff int                    `json:"max_cutoff"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the query server")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 200, "Requests per second limit")
	flag.Parse()

	opts, err := fetchOptions(*baseURL)
	if err != nil {
		log.Fatalf("Failed to fetch options: %v", err)
	}

	log.Printf("Starting load test on %s/api/aggregate", *baseURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)
	log.Printf("Sources: %d, Countries: %d, Cutoffs: %d", len(opts.Sources), len(opts.Countries), opts.MaxCutoff+1)

	var wg sync.WaitGroup
	var successCount, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 50) // Allow bursts up to 50

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{
				Timeout: 5 * time.Second,
			}
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

			for {
				select {
				case <-ctx.Done():
					return
				default:
					if err := limiter.Wait(ctx); err != nil {
						return
					}

					target := *baseURL + "/api/aggregate?" + randomQuery(rng, opts).Encode()
					req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
					if err != nil {
						continue // Should not happen
					}
					req.Header.Set("X-Request-ID", uuid.NewString())

					resp, err := client.Do(req)
					if err != nil {
						if ctx.Err() == nil {
							errorCount.Add(1)
						}
						continue
					}

					if resp.StatusCode == http.StatusOK {
						successCount.Add(1)
					} else {
						errorCount.Add(1)
					}
					resp.Body.Close()
				}
			}
		}(i)
	}

	wg.Wait()

	totalRequests := successCount.Load() + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Successful (200 OK): %d", successCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
}

func fetchOptions(baseURL string) (*options, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL + "/api/options")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var opts options
	if err := json.NewDecoder(resp.Body).Decode(&opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

// randomQuery picks a random subset of sources, an optional exclusion, a cutoff and a view.
func randomQuery(rng *rand.Rand, opts *options) url.Values {
	q := url.Values{}
	for _, s := range opts.Sources {
		if rng.Intn(2) == 0 {
			q.Add("source", s.Tag)
		}
	}
	if len(opts.Countries) > 0 && rng.Intn(4) == 0 {
		q.Add("exclude", opts.Countries[rng.Intn(len(opts.Countries))])
	}
	q.Set("cutoff", fmt.Sprint(rng.Intn(opts.MaxCutoff+1)))
	if rng.Intn(2) == 0 {
		q.Set("sort", "asc")
	}
	if rng.Intn(3) == 0 {
		q.Set("limit", fmt.Sprint(1+rng.Intn(20)))
	}
	if rng.Intn(2) == 0 {
		q.Set("view", "by_source")
	}
	return q
}
