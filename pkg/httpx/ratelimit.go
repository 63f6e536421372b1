package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cobaltgrid/foundation/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig describes a token-bucket profile.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// Rate limit profiles by endpoint sensitivity. Each can be tuned at startup
// via RATELIMIT_<NAME>_REQUESTS / _WINDOW_SEC / _BURST environment variables.
var (
	// StrictLimit guards credential and OTP endpoints.
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit covers authenticated write operations.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit covers authenticated reads.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}

	// PublicLimit covers unauthenticated read-only endpoints.
	PublicLimit = RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
)

func init() {
	StrictLimit = rateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = rateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = rateLimitFromEnv("LENIENT", LenientLimit)
	PublicLimit = rateLimitFromEnv("PUBLIC", PublicLimit)
}

func rateLimitFromEnv(name string, def RateLimitConfig) RateLimitConfig {
	cfg := def
	if n, err := strconv.Atoi(os.Getenv("RATELIMIT_" + name + "_REQUESTS")); err == nil && n > 0 {
		cfg.RequestsPerWindow = n
	}
	if n, err := strconv.Atoi(os.Getenv("RATELIMIT_" + name + "_WINDOW_SEC")); err == nil && n > 0 {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, err := strconv.Atoi(os.Getenv("RATELIMIT_" + name + "_BURST")); err == nil && n > 0 {
		cfg.Burst = n
	}
	return cfg
}

// KeyExtractor derives the bucket key for a request, typically a client IP
// or a subject identifier.
type KeyExtractor func(*http.Request) string

// ClientIP resolves the caller address, honouring X-Forwarded-For and
// X-Real-IP set by upstream proxies.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SubjectKey keys buckets by authenticated user, falling back to client IP
// for anonymous requests.
func SubjectKey(r *http.Request) string {
	if id := UserID(r.Context()); id != "" {
		return id
	}
	return ClientIP(r)
}

// BodyFieldKey keys buckets by client IP combined with a JSON body field such
// as the login email. The body is restored for downstream handlers.
func BodyFieldKey(field string) KeyExtractor {
	return func(r *http.Request) string {
		val := peekJSONField(r, field)
		if val == "" {
			return ClientIP(r)
		}
		return ClientIP(r) + ":" + val
	}
}

type limiterSet struct {
	limiters    sync.Map // key -> *rate.Limiter
	rate        rate.Limit
	burst       int
	mu          sync.Mutex
	lastCleanup time.Time
}

func (s *limiterSet) get(key string) *rate.Limiter {
	if l, ok := s.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	l, _ := s.limiters.LoadOrStore(key, rate.NewLimiter(s.rate, s.burst))
	s.maybeCleanup()
	return l.(*rate.Limiter)
}

// maybeCleanup evicts idle limiters. A bucket at full capacity has not been
// touched in at least one window.
func (s *limiterSet) maybeCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastCleanup) < 5*time.Minute {
		return
	}
	s.lastCleanup = time.Now()

	s.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(s.burst) {
			s.limiters.Delete(key)
		}
		return true
	})
}

// RateLimit returns a middleware enforcing cfg per extracted key. Requests
// with no extractable key pass through unthrottled.
func RateLimit(cfg RateLimitConfig, key KeyExtractor) Middleware {
	set := &limiterSet{
		rate:        rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:       cfg.Burst,
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			limiter := set.get(k)
			if limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			res := limiter.Reserve()
			delay := res.Delay()
			res.Cancel()

			retryAfter := max(int(delay.Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", cfg.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"key", k,
				"path", r.URL.Path,
				"retry_after", retryAfter,
			)

			WriteJSON(r.Context(), w, http.StatusTooManyRequests, map[string]string{
				"code":    "too-many-requests",
				"message": "Too many requests. Please try again later.",
			})
		})
	}
}

// RateLimitByIP throttles per client address.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimit(cfg, ClientIP)
}

// RateLimitBySubject throttles per authenticated user, per IP when anonymous.
func RateLimitBySubject(cfg RateLimitConfig) Middleware {
	return RateLimit(cfg, SubjectKey)
}
