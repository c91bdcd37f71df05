package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/sessionguard/api/handler"
	"github.com/fastygo/sessionguard/domain"
	"github.com/fastygo/sessionguard/internal/infrastructure/monitor"
	"github.com/fastygo/sessionguard/pkg/httpcontext"
	authUC "github.com/fastygo/sessionguard/usecase/auth"
	"github.com/fastygo/sessionguard/usecase/session"
)

type stubAuth struct{}

func (stubAuth) SendSignInCode(context.Context, string, string) error { return nil }
func (stubAuth) SignIn(context.Context, session.CookieWriter, authUC.Credentials, authUC.Client) (*domain.User, error) {
	return &domain.User{}, nil
}
func (stubAuth) SendSignUpCode(context.Context, string) error { return nil }
func (stubAuth) SignUp(context.Context, session.CookieWriter, authUC.Credentials, authUC.Client) (*domain.User, error) {
	return &domain.User{}, nil
}
func (stubAuth) SignOut(context.Context, string) error    { return nil }
func (stubAuth) SignOutAll(context.Context, string) error { return nil }

type stubUsers struct{}

func (stubUsers) List(context.Context) ([]domain.User, error) { return nil, nil }
func (stubUsers) Me(_ context.Context, s *domain.SessionWithUser) (*domain.User, error) {
	return &s.User, nil
}

type stubStatus struct{}

func (stubStatus) GetStatus() monitor.Status { return monitor.Status{PostgreSQL: true, Redis: true} }

func newTestRouter(limitedHits *int) fasthttp.RequestHandler {
	handlers := Handlers{
		Auth:   apiHandler.NewAuthHandler(stubAuth{}, httpcontext.CookieConfig{}, nil, nil),
		Users:  apiHandler.NewUsersHandler(stubUsers{}, nil, nil),
		Health: apiHandler.NewHealthHandler(stubStatus{}, nil, nil),
	}
	r := New(handlers, Middlewares{
		RateLimit: func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
			return func(ctx *fasthttp.RequestCtx) {
				*limitedHits++
				next(ctx)
			}
		},
	})
	return r.Handler
}

func serve(h fasthttp.RequestHandler, method, path, body string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	ctx.Request.SetBodyString(body)
	h(&ctx)
	return &ctx
}

func TestRoutes(t *testing.T) {
	var hits int
	h := newTestRouter(&hits)

	require.Equal(t, 200, serve(h, fasthttp.MethodGet, "/api/v1/healthz", "").Response.StatusCode())
	require.Zero(t, hits)

	ctx := serve(h, fasthttp.MethodPost, "/api/v1/auth/signup/send-verification-code", `{"email":"a@b.co"}`)
	require.Equal(t, 200, ctx.Response.StatusCode())
	require.Equal(t, 1, hits)

	ctx = serve(h, fasthttp.MethodPost, "/api/v1/auth/signout/all", "")
	require.Equal(t, 401, ctx.Response.StatusCode())
	require.Equal(t, 2, hits)

	require.Equal(t, 401, serve(h, fasthttp.MethodGet, "/api/v1/users/me", "").Response.StatusCode())
	require.Equal(t, 401, serve(h, fasthttp.MethodGet, "/api/v1/users/all", "").Response.StatusCode())
	require.Equal(t, 2, hits)

	require.Equal(t, 404, serve(h, fasthttp.MethodGet, "/api/v1/tasks", "").Response.StatusCode())
}
