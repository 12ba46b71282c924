// Package health polls the services the dashboard depends on and keeps the
// latest status snapshot for the health tab.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Check probes one dependency.
type Check interface {
	Name() string
	Probe(ctx context.Context) error
}

// HTTPCheck probes an HTTP endpoint; any 2xx answer is healthy.
type HTTPCheck struct {
	name   string
	url    string
	client *http.Client
}

// NewHTTPCheck builds a check for url. A nil client gets a short timeout.
func NewHTTPCheck(name, url string, client *http.Client) *HTTPCheck {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPCheck{name: name, url: url, client: client}
}

func (c *HTTPCheck) Name() string { return c.name }

func (c *HTTPCheck) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// RedisCheck pings a redis instance.
type RedisCheck struct {
	name   string
	client *redis.Client
}

func NewRedisCheck(name string, client *redis.Client) *RedisCheck {
	return &RedisCheck{name: name, client: client}
}

func (c *RedisCheck) Name() string { return c.name }

func (c *RedisCheck) Probe(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Result is the outcome of one probe.
type Result struct {
	Name      string        `json:"name"`
	Healthy   bool          `json:"healthy"`
	Error     string        `json:"error,omitempty"`
	Latency   time.Duration `json:"latencyMs"`
	CheckedAt time.Time     `json:"checkedAt"`
}

// Poller runs the checks on an interval and serves the last snapshot.
type Poller struct {
	checks   []Check
	interval time.Duration
	log      *log.Logger

	mu   sync.Mutex
	last map[string]Result
}

// NewPoller wires the checks; Run drives them, Snapshot reads them.
func NewPoller(interval time.Duration, logger *log.Logger, checks ...Check) *Poller {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{checks: checks, interval: interval, log: logger, last: map[string]Result{}}
}

// RunOnce probes every check and updates the snapshot.
func (p *Poller) RunOnce(ctx context.Context) []Result {
	results := make([]Result, 0, len(p.checks))
	for _, c := range p.checks {
		start := time.Now()
		err := c.Probe(ctx)
		r := Result{
			Name:      c.Name(),
			Healthy:   err == nil,
			Latency:   time.Since(start),
			CheckedAt: start.UTC(),
		}
		if err != nil {
			r.Error = err.Error()
			p.log.WithFields(log.Fields{"check": c.Name(), "error": err.Error()}).Warn("health check failed")
		}
		results = append(results, r)
	}
	p.mu.Lock()
	for _, r := range results {
		p.last[r.Name] = r
	}
	p.mu.Unlock()
	return results
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// Snapshot returns the latest known result per check, sorted by name.
func (p *Poller) Snapshot() []Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Result, 0, len(p.last))
	for _, r := range p.last {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
