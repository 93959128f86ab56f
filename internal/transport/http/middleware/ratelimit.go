package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	resp "projecthub/internal/transport/http/response"
)

// RateLimit 全局令牌桶限速
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, resp.Fail(resp.MsgTooManyRequests))
	}
}

const (
	ipIdleTTL     = 10 * time.Minute
	ipSweepAtSize = 10000
	ipSweepEvery  = time.Minute
)

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// ipLimiter 按 IP 分桶；桶数过阈值后至多每 sweepEvery 清理一次空闲桶
type ipLimiter struct {
	mu      sync.Mutex
	buckets map[string]*ipBucket
	rps     rate.Limit
	burst   int

	idleTTL    time.Duration
	sweepAt    int
	sweepEvery time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

func newIPLimiter(rps rate.Limit, burst int) *ipLimiter {
	return &ipLimiter{
		buckets:    make(map[string]*ipBucket),
		rps:        rps,
		burst:      burst,
		idleTTL:    ipIdleTTL,
		sweepAt:    ipSweepAtSize,
		sweepEvery: ipSweepEvery,
		now:        time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[ip]
	if !ok {
		if len(l.buckets) >= l.sweepAt && now.Sub(l.lastSweep) >= l.sweepEvery {
			l.sweep(now)
		}
		b = &ipBucket{lim: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// sweep 调用方持有 mu
func (l *ipLimiter) sweep(now time.Time) {
	l.lastSweep = now
	for k, v := range l.buckets {
		if now.Sub(v.seen) > l.idleTTL {
			delete(l.buckets, k)
		}
	}
}

// RateLimitPerIP 每 IP 限速，登录/注册这类接口使用
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	l := newIPLimiter(rps, burst)
	return func(c *gin.Context) {
		if l.allow(c.ClientIP()) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, resp.Fail(resp.MsgTooManyRequests))
	}
}
