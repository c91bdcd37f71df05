package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/sessionguard/api/transport"
	"github.com/fastygo/sessionguard/domain"
	"github.com/fastygo/sessionguard/internal/ratelimit"
	"github.com/fastygo/sessionguard/pkg/httpcontext"
)

// RateLimit counts requests per client identity. Requests are let through
// whenever the limiter itself fails.
func RateLimit(limiter *ratelimit.Limiter, timeout time.Duration, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			identity := httpcontext.ClientIP(ctx)

			stdCtx, cancel := context.WithTimeout(context.Background(), timeout)
			result, err := limiter.Allow(stdCtx, identity)
			cancel()
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request",
					zap.String("identity", identity),
					zap.Error(err),
				)
				next(ctx)
				return
			}

			if !result.Allowed {
				retryAfter := result.RetryAfterSeconds()
				ctx.Response.Header.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				writeEnvelope(ctx, fasthttp.StatusTooManyRequests, transport.NewError(
					string(domain.ErrCodeRateLimited),
					domain.ErrRateLimited.Message,
					transport.RetryMeta{RetryAfter: retryAfter},
				))
				return
			}

			ctx.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			ctx.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			next(ctx)
		}
	}
}
