package geo

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func startLookupServer(t *testing.T, handler fasthttp.RequestHandler) *fasthttp.Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) { return ln.Dial() },
	}
}

func TestLocateFormatsCityAndCountry(t *testing.T) {
	var requested string
	client := startLookupServer(t, func(ctx *fasthttp.RequestCtx) {
		requested = string(ctx.Path())
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"status":"success","city":"Berlin","regionName":"Land Berlin","country":"Germany"}`)
	})

	l := NewLocator(Config{Endpoint: "http://geo.local/json/", Timeout: time.Second}, client, nil)
	require.Equal(t, "Berlin, Germany", l.Locate(context.Background(), "8.8.8.8"))
	require.Equal(t, "/json/8.8.8.8", requested)
}

func TestLocateReturnsEmptyOnFailure(t *testing.T) {
	client := startLookupServer(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{"status":"fail","message":"reserved range"}`)
	})
	l := NewLocator(Config{Endpoint: "http://geo.local/json/"}, client, nil)
	require.Empty(t, l.Locate(context.Background(), "8.8.4.4"))

	broken := startLookupServer(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
	})
	l = NewLocator(Config{Endpoint: "http://geo.local/json/"}, broken, nil)
	require.Empty(t, l.Locate(context.Background(), "8.8.4.4"))
}

func TestLocateSkipsPrivateAddresses(t *testing.T) {
	called := false
	client := startLookupServer(t, func(ctx *fasthttp.RequestCtx) { called = true })
	l := NewLocator(Config{Endpoint: "http://geo.local/json/"}, client, nil)

	for _, ip := range []string{"127.0.0.1", "10.1.2.3", "192.168.0.10", "::1", "unknown", ""} {
		require.Empty(t, l.Locate(context.Background(), ip))
	}
	require.False(t, called)
}

func TestLocateDisabledWithoutEndpoint(t *testing.T) {
	l := NewLocator(Config{}, nil, nil)
	require.Empty(t, l.Locate(context.Background(), "8.8.8.8"))
}
