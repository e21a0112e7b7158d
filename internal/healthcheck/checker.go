package healthcheck

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Anything that can be pinged: the database, redis
type Pinger interface {
	Ping(ctx context.Context) error
}

// Periodically pings the tracker's dependencies and caches the result
type Checker struct {
	mu          sync.RWMutex
	components  map[string]Pinger
	status      map[string]*Status
	interval    time.Duration
	timeout     time.Duration
	maxFailures int
	logger      *zap.Logger
	stopChan    chan struct{}
	running     bool
}

// Holds health checker configuration
type Config struct {
	Interval    time.Duration // How often to check (default: 10s)
	Timeout     time.Duration // Ping timeout (default: 2s)
	MaxFailures int           // Consecutive failures before marking unhealthy (default: 1)
}

func NewChecker(components map[string]Pinger, cfg Config, log *zap.Logger) *Checker {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 1
	}
	if log == nil {
		log = zap.NewNop()
	}

	checker := &Checker{
		components:  components,
		status:      make(map[string]*Status, len(components)),
		interval:    cfg.Interval,
		timeout:     cfg.Timeout,
		maxFailures: cfg.MaxFailures,
		logger:      log,
		stopChan:    make(chan struct{}),
	}

	// Assume healthy until the first check says otherwise
	for name := range components {
		checker.status[name] = &Status{Component: name, IsHealthy: true}
	}

	return checker
}

// Runs one check immediately and then every interval until Stop
func (c *Checker) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running || len(c.components) == 0 {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	c.logger.Info("starting dependency health checks",
		zap.Int("components", len(c.components)),
		zap.Duration("interval", c.interval),
	)

	c.CheckNow(ctx)

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.CheckNow(ctx)
			case <-ctx.Done():
				return
			case <-c.stopChan:
				return
			}
		}
	}()
}

func (c *Checker) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		close(c.stopChan)
		c.running = false
	}
}

// Pings every component concurrently and records the outcome
func (c *Checker) CheckNow(ctx context.Context) {
	var wg sync.WaitGroup

	for name, p := range c.components {
		wg.Add(1)
		go func(name string, p Pinger) {
			defer wg.Done()

			pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			if err := p.Ping(pingCtx); err != nil {
				c.recordFailure(name, err)
				return
			}
			c.recordSuccess(name)
		}(name, p)
	}

	wg.Wait()
}

func (c *Checker) recordSuccess(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	status := c.status[name]
	status.LastCheck = now
	status.LastSuccess = now
	status.LastError = ""
	status.FailureCount = 0

	if !status.IsHealthy {
		c.logger.Info("dependency recovered", zap.String("component", name))
		status.IsHealthy = true
	}
}

func (c *Checker) recordFailure(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	status := c.status[name]
	status.LastCheck = now
	status.LastFailure = now
	status.LastError = err.Error()
	status.FailureCount++
	c.logger.Debug("dependency check failed",
		zap.String("component", name),
		zap.Int("failures", status.FailureCount),
		zap.Error(err),
	)

	if status.IsHealthy && status.FailureCount >= c.maxFailures {
		c.logger.Warn("dependency unhealthy",
			zap.String("component", name),
			zap.Int("failures", status.FailureCount),
			zap.Error(err),
		)
		status.IsHealthy = false
	}
}

// Returns a copy of every component's status
func (c *Checker) GetAllStatus() map[string]Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	statusMap := make(map[string]Status, len(c.status))
	for name, status := range c.status {
		statusMap[name] = *status
	}

	return statusMap
}

// Healthy when every component is up, Unhealthy when none is
func (c *Checker) OverallHealth() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	healthy := 0
	for _, status := range c.status {
		if status.IsHealthy {
			healthy++
		}
	}

	switch {
	case healthy == len(c.status):
		return Healthy
	case healthy == 0:
		return Unhealthy
	default:
		return Degraded
	}
}
