package httpcontext

import (
	"time"

	"github.com/valyala/fasthttp"
)

const SessionCookieName = "session"

type CookieConfig struct {
	Name   string
	Secure bool
}

// Cookies reads and writes the session cookie of one request.
type Cookies struct {
	ctx *fasthttp.RequestCtx
	cfg CookieConfig
}

func NewCookies(ctx *fasthttp.RequestCtx, cfg CookieConfig) *Cookies {
	if cfg.Name == "" {
		cfg.Name = SessionCookieName
	}
	return &Cookies{ctx: ctx, cfg: cfg}
}

// SessionToken returns the raw token sent by the client, if any.
func (c *Cookies) SessionToken() string {
	return string(c.ctx.Request.Header.Cookie(c.cfg.Name))
}

func (c *Cookies) SetSessionCookie(token string, expiresAt time.Time) {
	c.write(token, func(cookie *fasthttp.Cookie) {
		cookie.SetExpire(expiresAt)
	})
}

// ClearSessionCookie tells the client to drop the cookie immediately.
func (c *Cookies) ClearSessionCookie() {
	c.write("", func(cookie *fasthttp.Cookie) {
		cookie.SetExpire(fasthttp.CookieExpireDelete)
	})
}

func (c *Cookies) write(value string, apply func(*fasthttp.Cookie)) {
	cookie := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(cookie)

	cookie.SetKey(c.cfg.Name)
	cookie.SetValue(value)
	cookie.SetPath("/")
	cookie.SetHTTPOnly(true)
	cookie.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	cookie.SetSecure(c.cfg.Secure)
	apply(cookie)

	c.ctx.Response.Header.SetCookie(cookie)
}
