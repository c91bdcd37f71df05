package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/sessionguard/domain"
	"github.com/fastygo/sessionguard/internal/ratelimit"
	"github.com/fastygo/sessionguard/pkg/httpcontext"
)

func okHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redislib.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func decodeBody(t *testing.T, ctx *fasthttp.RequestCtx) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	return body
}

func TestRateLimitHeadersAndRejection(t *testing.T) {
	_, rdb := newRedis(t)
	limiter := ratelimit.New(rdb, ratelimit.Options{Window: time.Minute, Max: 2, KeyPrefix: "rl-auth"})
	handler := RateLimit(limiter, time.Second, nil)(okHandler)

	hit := func() *fasthttp.RequestCtx {
		var ctx fasthttp.RequestCtx
		ctx.Request.Header.Set("X-Forwarded-For", "198.51.100.4")
		handler(&ctx)
		return &ctx
	}

	first := hit()
	require.Equal(t, fasthttp.StatusOK, first.Response.StatusCode())
	require.Equal(t, "2", string(first.Response.Header.Peek("X-RateLimit-Limit")))
	require.Equal(t, "1", string(first.Response.Header.Peek("X-RateLimit-Remaining")))

	second := hit()
	require.Equal(t, "0", string(second.Response.Header.Peek("X-RateLimit-Remaining")))

	third := hit()
	require.Equal(t, fasthttp.StatusTooManyRequests, third.Response.StatusCode())
	require.Equal(t, "60", string(third.Response.Header.Peek("Retry-After")))

	body := decodeBody(t, third)
	require.Equal(t, "Too many requests", body["error"])
	require.Equal(t, float64(60), body["meta"].(map[string]interface{})["retryAfter"])
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	limiter := ratelimit.New(rdb, ratelimit.Options{Max: 1})
	handler := RateLimit(limiter, 200*time.Millisecond, nil)(okHandler)
	mr.Close()

	for i := 0; i < 3; i++ {
		var ctx fasthttp.RequestCtx
		handler(&ctx)
		require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	}
}

type stubValidator struct {
	entries map[string]*domain.SessionWithUser
	err     error
}

func (s stubValidator) Validate(_ context.Context, token string) (*domain.SessionWithUser, error) {
	if s.err != nil {
		return nil, s.err
	}
	if entry, ok := s.entries[token]; ok {
		return entry, nil
	}
	return nil, domain.ErrSessionNotFound
}

func requestWithCookie(token string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	if token != "" {
		ctx.Request.Header.SetCookie(httpcontext.SessionCookieName, token)
	}
	return &ctx
}

func responseCookie(t *testing.T, ctx *fasthttp.RequestCtx) *fasthttp.Cookie {
	t.Helper()
	cookie := &fasthttp.Cookie{}
	cookie.SetKey(httpcontext.SessionCookieName)
	if !ctx.Response.Header.Cookie(cookie) {
		return nil
	}
	return cookie
}

func TestSessionMiddleware(t *testing.T) {
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := &domain.SessionWithUser{
		Session: domain.Session{ID: "sid", UserID: "u1", ExpiresAt: expires},
		User:    domain.User{ID: "u1"},
	}
	mw := Session(stubValidator{entries: map[string]*domain.SessionWithUser{"good": entry}}, nil, httpcontext.CookieConfig{}, nil)

	var seen *domain.SessionWithUser
	handler := mw(func(ctx *fasthttp.RequestCtx) {
		seen, _ = CurrentSession(ctx)
	})

	t.Run("anonymous", func(t *testing.T) {
		seen = nil
		ctx := requestWithCookie("")
		handler(ctx)
		require.Nil(t, seen)
		require.Nil(t, responseCookie(t, ctx))
	})

	t.Run("valid", func(t *testing.T) {
		seen = nil
		ctx := requestWithCookie("good")
		handler(ctx)
		require.Equal(t, entry, seen)
		cookie := responseCookie(t, ctx)
		require.NotNil(t, cookie)
		require.Equal(t, "good", string(cookie.Value()))
		require.True(t, expires.Equal(cookie.Expire()))
	})

	t.Run("void", func(t *testing.T) {
		seen = nil
		ctx := requestWithCookie("stale")
		handler(ctx)
		require.Nil(t, seen)
		cookie := responseCookie(t, ctx)
		require.NotNil(t, cookie)
		require.Empty(t, cookie.Value())
	})
}

func TestSessionMiddlewareStoreFailure(t *testing.T) {
	called := false
	handler := Session(stubValidator{err: domain.StoreFailure(errors.New("db down"))}, nil, httpcontext.CookieConfig{}, nil)(
		func(*fasthttp.RequestCtx) { called = true },
	)

	ctx := requestWithCookie("any")
	handler(ctx)
	require.False(t, called)
	require.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(okHandler)

	var anon fasthttp.RequestCtx
	handler(&anon)
	require.Equal(t, fasthttp.StatusUnauthorized, anon.Response.StatusCode())
	require.Equal(t, "Unauthorized", decodeBody(t, &anon)["error"])

	var authed fasthttp.RequestCtx
	authed.SetUserValue(userValueSession, &domain.SessionWithUser{})
	handler(&authed)
	require.Equal(t, fasthttp.StatusOK, authed.Response.StatusCode())
}
