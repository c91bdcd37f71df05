package middleware

import (
	"context"
	"errors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/sessionguard/api/transport"
	"github.com/fastygo/sessionguard/domain"
	"github.com/fastygo/sessionguard/pkg/httpcontext"
	appLogger "github.com/fastygo/sessionguard/pkg/logger"
)

const userValueSession = "session"

type SessionValidator interface {
	Validate(ctx context.Context, token string) (*domain.SessionWithUser, error)
}

// Session resolves the session cookie. A live session is attached to the
// request and its cookie re-issued with the current expiry; a void cookie
// is cleared and the request continues anonymously.
func Session(
	validator SessionValidator,
	adapter *httpcontext.Adapter,
	cookieCfg httpcontext.CookieConfig,
	logger *zap.Logger,
) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if adapter == nil {
		adapter = httpcontext.NewAdapter(0)
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			cookies := httpcontext.NewCookies(ctx, cookieCfg)
			token := cookies.SessionToken()
			if token == "" {
				next(ctx)
				return
			}

			stdCtx, cancel := adapter.Attach(ctx)
			entry, err := validator.Validate(stdCtx, token)
			cancel()

			switch {
			case err == nil:
				cookies.SetSessionCookie(token, entry.Session.ExpiresAt)
				AttachSession(ctx, entry)
			case errors.Is(err, domain.ErrSessionNotFound):
				cookies.ClearSessionCookie()
			default:
				appLogger.WithRequestID(stdCtx, logger).Error("session validation failed", zap.Error(err))
				writeEnvelope(ctx, fasthttp.StatusInternalServerError,
					transport.Failure(domain.ErrCodeInternal, "Authentication failed. Please try again."))
				return
			}
			next(ctx)
		}
	}
}

// AttachSession stores entry on the request for CurrentSession.
func AttachSession(ctx *fasthttp.RequestCtx, entry *domain.SessionWithUser) {
	ctx.SetUserValue(userValueSession, entry)
}

// CurrentSession returns the session attached by Session, if any.
func CurrentSession(ctx *fasthttp.RequestCtx) (*domain.SessionWithUser, bool) {
	entry, ok := ctx.UserValue(userValueSession).(*domain.SessionWithUser)
	return entry, ok && entry != nil
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := CurrentSession(ctx); !ok {
			writeEnvelope(ctx, fasthttp.StatusUnauthorized,
				transport.Failure(domain.ErrCodeUnauthorized, "Unauthorized"))
			return
		}
		next(ctx)
	}
}
