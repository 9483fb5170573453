// pkg/fetch/circuit_breaker.go
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/diem-pm/diem/pkg/core"
)

// CircuitBreakerFetcher wraps a Fetcher with per-host circuit
// breakers, so a dead provider host stops being hammered during batch
// updates.
type CircuitBreakerFetcher struct {
	fetcher  *Fetcher
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

// NewCircuitBreakerFetcher creates a circuit breaker wrapper for a
// fetcher.
func NewCircuitBreakerFetcher(f *Fetcher) *CircuitBreakerFetcher {
	return &CircuitBreakerFetcher{
		fetcher:  f,
		breakers: make(map[string]*circuit.Breaker),
	}
}

func (cbf *CircuitBreakerFetcher) getBreaker(host string) *circuit.Breaker {
	cbf.mu.RLock()
	breaker, exists := cbf.breakers[host]
	cbf.mu.RUnlock()

	if exists {
		return breaker
	}

	cbf.mu.Lock()
	defer cbf.mu.Unlock()

	if breaker, exists := cbf.breakers[host]; exists {
		return breaker
	}

	// Trips after 5 consecutive failures, reopening on an exponential
	// schedule.
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})

	cbf.breakers[host] = breaker
	return breaker
}

// Fetch wraps Fetcher.Fetch with circuit breaker logic.
func (cbf *CircuitBreakerFetcher) Fetch(ctx context.Context, fetchURL string) (io.ReadCloser, error) {
	breaker := cbf.getBreaker(extractHost(fetchURL))

	if !breaker.Ready() {
		return nil, fmt.Errorf("circuit breaker open for %s: %w", extractHost(fetchURL), ErrUpstreamDown)
	}

	var body io.ReadCloser
	err := breaker.Call(func() error {
		var fetchErr error
		body, fetchErr = cbf.fetcher.Fetch(ctx, fetchURL)
		return fetchErr
	}, 0)
	if err != nil {
		return nil, err
	}

	return body, nil
}

// DownloadFile wraps Fetcher.DownloadFile with circuit breaker logic.
func (cbf *CircuitBreakerFetcher) DownloadFile(ctx context.Context, fetchURL, destPath string) (int64, error) {
	breaker := cbf.getBreaker(extractHost(fetchURL))

	if !breaker.Ready() {
		return 0, fmt.Errorf("circuit breaker open for %s: %w", extractHost(fetchURL), ErrUpstreamDown)
	}

	var written int64
	err := breaker.Call(func() error {
		var dlErr error
		written, dlErr = cbf.fetcher.DownloadFile(ctx, fetchURL, destPath)
		return dlErr
	}, 0)

	return written, err
}

// FetchPackageInfo wraps Fetcher.FetchPackageInfo with circuit breaker
// logic.
func (cbf *CircuitBreakerFetcher) FetchPackageInfo(ctx context.Context, assetURL string) (*core.Package, error) {
	breaker := cbf.getBreaker(extractHost(assetURL))

	if !breaker.Ready() {
		return nil, fmt.Errorf("circuit breaker open for %s: %w", extractHost(assetURL), ErrUpstreamDown)
	}

	var pkg *core.Package
	err := breaker.Call(func() error {
		var fetchErr error
		pkg, fetchErr = cbf.fetcher.FetchPackageInfo(ctx, assetURL)
		return fetchErr
	}, 0)
	if err != nil {
		return nil, err
	}

	return pkg, nil
}

func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}
