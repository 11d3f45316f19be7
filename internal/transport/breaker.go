package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// BreakerDownloader wraps a Downloader with per-host circuit breakers so a
// dead registry or archive host fails fast instead of consuming every
// concurrently running unit's attempt.
type BreakerDownloader struct {
	downloader *Downloader
	breakers   map[string]*circuit.Breaker
	mu         sync.RWMutex
}

// NewBreakerDownloader creates a circuit breaker wrapper for a downloader.
func NewBreakerDownloader(d *Downloader) *BreakerDownloader {
	return &BreakerDownloader{
		downloader: d,
		breakers:   make(map[string]*circuit.Breaker),
	}
}

// getBreaker returns or creates a circuit breaker for the given host.
func (b *BreakerDownloader) getBreaker(host string) *circuit.Breaker {
	b.mu.RLock()
	breaker, exists := b.breakers[host]
	b.mu.RUnlock()

	if exists {
		return breaker
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Double-check after acquiring write lock
	if breaker, exists := b.breakers[host]; exists {
		return breaker
	}

	// Trips after 5 consecutive failures
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	}
	breaker = circuit.NewBreakerWithOptions(opts)

	b.breakers[host] = breaker
	return breaker
}

// Fetch wraps the underlying downloader's Fetch with circuit breaker logic.
func (b *BreakerDownloader) Fetch(ctx context.Context, fetchURL, dest string) error {
	host := hostOf(fetchURL)
	breaker := b.getBreaker(host)

	if !breaker.Ready() {
		return &TransportError{URL: fetchURL, Err: fmt.Errorf("circuit breaker open for host %s", host)}
	}

	return breaker.Call(func() error {
		return b.downloader.Fetch(ctx, fetchURL, dest)
	}, 0)
}

// BreakerStates returns the current state of circuit breakers (for health checks).
func (b *BreakerDownloader) BreakerStates() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	states := make(map[string]string)
	for host, breaker := range b.breakers {
		if breaker.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

// hostOf extracts a host identifier from a URL for circuit breaker grouping.
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}
