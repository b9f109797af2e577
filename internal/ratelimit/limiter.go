// Package ratelimit throttles the HTTP surface with an in-memory
// token-bucket store. There is no Redis-backed store here (see DESIGN.md
// for why the teacher's distributed store doesn't apply to a
// single-process server).
package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/astralgames/doomdeal/internal/logging"
	"github.com/astralgames/doomdeal/internal/metrics"
)

// Limiter holds the per-endpoint-class rate limiters.
type Limiter struct {
	rooms *limiter.Limiter
	wsIP  *limiter.Limiter
}

// New builds a Limiter from formatted rate strings such as "20-M".
func New(roomsRate, wsIPRate string) (*Limiter, error) {
	store := memory.NewStore()

	rr, err := limiter.NewRateFromFormatted(roomsRate)
	if err != nil {
		return nil, err
	}
	wr, err := limiter.NewRateFromFormatted(wsIPRate)
	if err != nil {
		return nil, err
	}

	return &Limiter{
		rooms: limiter.New(store, rr),
		wsIP:  limiter.New(store, wr),
	}, nil
}

// RoomsMiddleware rate-limits room create/join endpoints by client IP.
func (l *Limiter) RoomsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		lc, err := l.rooms.Get(ctx, c.ClientIP())
		if err != nil {
			logging.Error(ctx, "rate limiter store failed", zap.Error(err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
		if lc.Reached {
			metrics.RateLimitExceeded.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

// AllowWebSocket checks (and consumes) the per-IP websocket-connect budget.
// Returns false if the caller should be rejected.
func (l *Limiter) AllowWebSocket(c *gin.Context) bool {
	ctx := c.Request.Context()
	lc, err := l.wsIP.Get(ctx, c.ClientIP())
	if err != nil {
		logging.Error(ctx, "ws rate limiter store failed", zap.Error(err))
		return true
	}
	if lc.Reached {
		metrics.RateLimitExceeded.WithLabelValues("websocket_connect").Inc()
		return false
	}
	return true
}
