package handler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/sessionguard/domain"
	"github.com/fastygo/sessionguard/internal/infrastructure/monitor"
	"github.com/fastygo/sessionguard/internal/middleware"
	"github.com/fastygo/sessionguard/pkg/httpcontext"
	authUC "github.com/fastygo/sessionguard/usecase/auth"
	"github.com/fastygo/sessionguard/usecase/session"
)

type fakeAuth struct {
	err        error
	gotEmail   string
	gotCreds   authUC.Credentials
	gotClient  authUC.Client
	gotToken   string
	gotUserID  string
	issueToken string
}

func (f *fakeAuth) SendSignInCode(_ context.Context, email, _ string) error {
	f.gotEmail = email
	return f.err
}

func (f *fakeAuth) SignIn(_ context.Context, cookies session.CookieWriter, creds authUC.Credentials, client authUC.Client) (*domain.User, error) {
	f.gotCreds, f.gotClient = creds, client
	if f.err != nil {
		return nil, f.err
	}
	cookies.SetSessionCookie(f.issueToken, time.Now().Add(time.Hour))
	return &domain.User{ID: "u1", Email: creds.Email}, nil
}

func (f *fakeAuth) SendSignUpCode(_ context.Context, email string) error {
	f.gotEmail = email
	return f.err
}

func (f *fakeAuth) SignUp(_ context.Context, cookies session.CookieWriter, creds authUC.Credentials, client authUC.Client) (*domain.User, error) {
	return f.SignIn(context.Background(), cookies, creds, client)
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	f.gotToken = token
	return f.err
}

func (f *fakeAuth) SignOutAll(_ context.Context, userID string) error {
	f.gotUserID = userID
	return f.err
}

func newAuthHandler(f *fakeAuth) *AuthHandler {
	return NewAuthHandler(f, httpcontext.CookieConfig{}, httpcontext.NewAdapter(time.Second), nil)
}

func postJSON(body string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.Header.SetContentType("application/json")
	ctx.Request.SetBodyString(body)
	return &ctx
}

func decode(t *testing.T, ctx *fasthttp.RequestCtx) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	return body
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrInvalidCredentials, 401},
		{domain.NewError(domain.ErrCodeForbidden, "no"), 403},
		{domain.ErrInvalidPayload, 400},
		{domain.ErrVerificationCodeExpired, 400},
		{domain.ErrEmailInUse, 400},
		{domain.ErrRateLimited, 429},
		{domain.ErrUserNotFound, 404},
		{errors.New("boom"), 500},
		{domain.StoreFailure(errors.New("pg down")), 500},
	}
	for _, tc := range cases {
		status, _ := mapError(tc.err)
		require.Equal(t, tc.status, status, tc.err.Error())
	}
}

func TestSendSignInCode(t *testing.T) {
	f := &fakeAuth{}
	h := newAuthHandler(f)

	ctx := postJSON(`{"email":"Alice@Example.com","password":"secret"}`)
	h.SendSignInCode(ctx)
	require.Equal(t, 200, ctx.Response.StatusCode())
	require.Equal(t, "alice@example.com", f.gotEmail)
	data := decode(t, ctx)["data"].(map[string]interface{})
	require.Equal(t, "Check your email for the verification code!", data["message"])

	f.err = domain.ErrInvalidCredentials
	ctx = postJSON(`{"email":"alice@example.com","password":"wrong"}`)
	h.SendSignInCode(ctx)
	require.Equal(t, 401, ctx.Response.StatusCode())
	require.Equal(t, "Invalid credentials provided", decode(t, ctx)["error"])
}

func TestInvalidPayloadRejected(t *testing.T) {
	h := newAuthHandler(&fakeAuth{})

	ctx := postJSON(`{"email":"not-an-email"}`)
	h.SendSignUpCode(ctx)
	require.Equal(t, 400, ctx.Response.StatusCode())
	body := decode(t, ctx)
	require.Equal(t, "INVALID", body["code"])
	require.Equal(t, "invalid email address", body["error"])
}

func TestSignInSetsCookieAndClient(t *testing.T) {
	f := &fakeAuth{issueToken: "tok"}
	h := newAuthHandler(f)

	ctx := postJSON(`{"email":"a@b.co","password":"pw","code":"ABC_12"}`)
	ctx.Request.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	ctx.Request.Header.SetUserAgent("curl/8.0")
	h.SignIn(ctx)

	require.Equal(t, 200, ctx.Response.StatusCode())
	require.Equal(t, "ABC_12", f.gotCreds.Code)
	require.Equal(t, authUC.Client{IP: "203.0.113.9", UserAgent: "curl/8.0"}, f.gotClient)
	require.Contains(t, string(ctx.Response.Header.PeekCookie("session")), "session=tok")
}

func TestSignInExpiredCode(t *testing.T) {
	h := newAuthHandler(&fakeAuth{err: domain.ErrVerificationCodeExpired})

	ctx := postJSON(`{"email":"a@b.co","password":"pw","code":"ABC_12"}`)
	h.SignIn(ctx)
	require.Equal(t, 400, ctx.Response.StatusCode())
	require.Equal(t, "Code expired", decode(t, ctx)["error"])
}

func TestSignUpUnclassifiedFailure(t *testing.T) {
	h := newAuthHandler(&fakeAuth{err: errors.New("disk on fire")})

	ctx := postJSON(`{"email":"a@b.co","password":"longenough","code":"ABC_12"}`)
	h.SignUp(ctx)
	require.Equal(t, 500, ctx.Response.StatusCode())
	require.Equal(t, genericFailure, decode(t, ctx)["error"])
}

func TestSignOut(t *testing.T) {
	f := &fakeAuth{}
	h := newAuthHandler(f)

	ctx := postJSON(``)
	h.SignOut(ctx)
	require.Equal(t, 401, ctx.Response.StatusCode())
	require.Equal(t, "No active session found", decode(t, ctx)["error"])

	ctx = postJSON(``)
	ctx.Request.Header.SetCookie("session", "tok")
	h.SignOut(ctx)
	require.Equal(t, 200, ctx.Response.StatusCode())
	require.Equal(t, "tok", f.gotToken)
	require.Contains(t, string(ctx.Response.Header.PeekCookie("session")), "expires=")

	f.err = domain.ErrUnauthorized
	ctx = postJSON(``)
	ctx.Request.Header.SetCookie("session", "void")
	h.SignOut(ctx)
	require.Equal(t, 401, ctx.Response.StatusCode())
	require.Equal(t, "Invalid or expired session", decode(t, ctx)["error"])
	require.NotEmpty(t, ctx.Response.Header.PeekCookie("session"))
}

func TestSignOutAll(t *testing.T) {
	f := &fakeAuth{}
	h := newAuthHandler(f)

	ctx := postJSON(``)
	h.SignOutAll(ctx)
	require.Equal(t, 401, ctx.Response.StatusCode())

	ctx = postJSON(``)
	middleware.AttachSession(ctx, &domain.SessionWithUser{User: domain.User{ID: "u1"}})
	h.SignOutAll(ctx)
	require.Equal(t, 200, ctx.Response.StatusCode())
	require.Equal(t, "u1", f.gotUserID)
}

type fakeUsers struct {
	list []domain.User
	err  error
}

func (f fakeUsers) List(context.Context) ([]domain.User, error) { return f.list, f.err }

func (f fakeUsers) Me(_ context.Context, current *domain.SessionWithUser) (*domain.User, error) {
	if current == nil {
		return nil, domain.ErrUnauthorized
	}
	return &current.User, nil
}

func TestUsersHandler(t *testing.T) {
	h := NewUsersHandler(fakeUsers{list: []domain.User{{ID: "u1"}, {ID: "u2"}}}, nil, nil)

	var ctx fasthttp.RequestCtx
	h.All(&ctx)
	require.Equal(t, 200, ctx.Response.StatusCode())
	data := decode(t, &ctx)["data"].(map[string]interface{})
	require.Equal(t, "Users retrieved successfully", data["message"])
	require.Len(t, data["users"], 2)

	var me fasthttp.RequestCtx
	middleware.AttachSession(&me, &domain.SessionWithUser{User: domain.User{ID: "u9", Email: "me@x.io"}})
	h.Me(&me)
	require.Equal(t, 200, me.Response.StatusCode())
	require.Equal(t, "me@x.io", decode(t, &me)["data"].(map[string]interface{})["email"])

	var anon fasthttp.RequestCtx
	h.Me(&anon)
	require.Equal(t, 401, anon.Response.StatusCode())
}

type fixedStatus monitor.Status

func (s fixedStatus) GetStatus() monitor.Status { return monitor.Status(s) }

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(fixedStatus{PostgreSQL: true, Redis: true, Outbox: true, OutboxSize: 2}, nil, nil)
	var ctx fasthttp.RequestCtx
	h.Check(&ctx)
	require.Equal(t, 200, ctx.Response.StatusCode())
	body := decode(t, &ctx)
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "connected", body["redis"])
	require.Equal(t, float64(2), body["outbox"].(map[string]interface{})["pending"])

	h = NewHealthHandler(fixedStatus{PostgreSQL: true}, nil, nil)
	var down fasthttp.RequestCtx
	h.Check(&down)
	require.Equal(t, 503, down.Response.StatusCode())
	body = decode(t, &down)
	require.Equal(t, "unhealthy", body["status"])
	require.Equal(t, "disconnected", body["redis"])
	require.Equal(t, "connected", body["database"])
}
