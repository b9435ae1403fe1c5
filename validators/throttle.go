package validators

import (
	"net"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultRequestsPerSecond is the sustained per-client rate.
	DefaultRequestsPerSecond = 10
	// DefaultBurst is the per-client burst allowance.
	DefaultBurst = 20

	// maxTrackedClients bounds the limiter map; once exceeded the map is
	// reset rather than evicted piecemeal.
	maxTrackedClients = 10000
)

// ThrottleValidator rate-limits exchanges per client address.
type ThrottleValidator struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	logger   *zap.Logger
}

// NewThrottleValidator builds a per-client rate limiter. Non-positive
// arguments fall back to the defaults.
func NewThrottleValidator(perSecond float64, burst int, logger *zap.Logger) *ThrottleValidator {
	if perSecond <= 0 {
		perSecond = DefaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThrottleValidator{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		logger:   logger.Named("throttle"),
	}
}

func (v *ThrottleValidator) Validate(r *http.Request, body []byte) error {
	limiter := v.limiterFor(clientKey(r))
	if !limiter.Allow() {
		v.logger.Debug("Throttling client", zap.String("client", clientKey(r)))
		return &Error{
			Status:  http.StatusTooManyRequests,
			Message: "too many requests",
		}
	}
	return nil
}

func (v *ThrottleValidator) limiterFor(key string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.limiters) > maxTrackedClients {
		v.limiters = make(map[string]*rate.Limiter)
	}
	limiter, ok := v.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(v.limit, v.burst)
		v.limiters[key] = limiter
	}
	return limiter
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
