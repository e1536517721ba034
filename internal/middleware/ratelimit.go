package middleware

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "kbgraph/pkg/errors"
)

// RateLimitConfig bounds request rates per tenant.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// IdleTTL is how long an unused limiter is kept before it is evicted.
	IdleTTL time.Duration
}

type tenantLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per userId. Requests without a userId
// share the bucket keyed by the remote address.
type RateLimiter struct {
	cfg     RateLimitConfig
	errors  *apperrors.ErrorHandler
	logger  *zap.Logger
	now     func() time.Time
	mu      sync.Mutex
	tenants map[string]*tenantLimiter
	stop    chan struct{}
	once    sync.Once
}

func NewRateLimiter(cfg RateLimitConfig, errs *apperrors.ErrorHandler, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if errs == nil {
		errs = apperrors.NewErrorHandler(logger, false)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &RateLimiter{
		cfg:     cfg,
		errors:  errs,
		logger:  logger,
		now:     time.Now,
		tenants: make(map[string]*tenantLimiter),
		stop:    make(chan struct{}),
	}
}

// Start evicts idle limiters in the background until Stop is called.
func (l *RateLimiter) Start() {
	go func() {
		ticker := time.NewTicker(l.cfg.IdleTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := l.evictIdle(); n > 0 {
					l.logger.Debug("evicted idle rate limiters", zap.Int("count", n))
				}
			case <-l.stop:
				return
			}
		}
	}()
}

func (l *RateLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *RateLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tenants[key]
	if !ok {
		t = &tenantLimiter{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.tenants[key] = t
	}
	t.lastSeen = l.now()
	return t.limiter
}

func (l *RateLimiter) evictIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.cfg.IdleTTL)
	n := 0
	for key, t := range l.tenants {
		if t.lastSeen.Before(cutoff) {
			delete(l.tenants, key)
			n++
		}
	}
	return n
}

// Tenants reports how many limiters are live.
func (l *RateLimiter) Tenants() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tenants)
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("userId")
		if key == "" {
			key = "addr:" + r.RemoteAddr
		}
		if !l.limiterFor(key).Allow() {
			l.errors.Handle(w, r, apperrors.NewRateLimitError(l.cfg.RequestsPerSecond, "second"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
