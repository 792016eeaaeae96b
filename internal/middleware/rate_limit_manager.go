package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Bucket names for the independent per-IP rate limit pools.
const (
	BucketGeneral = "general"
	BucketLogin   = "login"
	BucketUpload  = "upload"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitManager keeps one token-bucket limiter per (bucket, client IP)
// pair and drops idle entries in the background.
type RateLimitManager struct {
	mu      sync.Mutex
	buckets map[string]map[string]*visitor

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRateLimitManager(ctx context.Context) *RateLimitManager {
	managerCtx, cancel := context.WithCancel(ctx)

	m := &RateLimitManager{
		buckets: make(map[string]map[string]*visitor),
		ctx:     managerCtx,
		cancel:  cancel,
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// Allow reports whether the request fits the bucket's budget. A
// requestsPerWindow of zero or less disables the bucket entirely.
func (m *RateLimitManager) Allow(bucket, ip string, requestsPerWindow, windowSeconds, burst int) bool {
	if requestsPerWindow <= 0 {
		return true
	}

	m.mu.Lock()
	limiter := m.limiterForLocked(bucket, ip, requestsPerWindow, windowSeconds, burst)
	m.mu.Unlock()

	return limiter.Allow()
}

func (m *RateLimitManager) limiterForLocked(bucket, ip string, requestsPerWindow, windowSeconds, burst int) *rate.Limiter {
	visitors, ok := m.buckets[bucket]
	if !ok {
		visitors = make(map[string]*visitor)
		m.buckets[bucket] = visitors
	}

	if v, exists := visitors[ip]; exists {
		v.lastSeen = time.Now()
		return v.limiter
	}

	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	if burst < requestsPerWindow {
		burst = requestsPerWindow
	}

	limit := rate.Limit(float64(requestsPerWindow) / float64(windowSeconds))
	limiter := rate.NewLimiter(limit, burst)
	visitors[ip] = &visitor{limiter: limiter, lastSeen: time.Now()}

	return limiter
}

func (m *RateLimitManager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *RateLimitManager) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for bucket, visitors := range m.buckets {
		ttl := 3 * time.Minute
		if bucket != BucketGeneral {
			ttl = 10 * time.Minute
		}

		for ip, v := range visitors {
			if time.Since(v.lastSeen) > ttl {
				delete(visitors, ip)
			}
		}
	}
}

// VisitorCount reports tracked IPs across all buckets.
func (m *RateLimitManager) VisitorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, visitors := range m.buckets {
		total += len(visitors)
	}
	return total
}

// Shutdown stops the cleanup goroutine and waits for it to finish.
func (m *RateLimitManager) Shutdown() error {
	m.cancel()
	m.wg.Wait()
	return nil
}
