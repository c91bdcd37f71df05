package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/sessionguard/api/transport"
	"github.com/fastygo/sessionguard/domain"
	"github.com/fastygo/sessionguard/internal/middleware"
	"github.com/fastygo/sessionguard/pkg/httpcontext"
	authUC "github.com/fastygo/sessionguard/usecase/auth"
	"github.com/fastygo/sessionguard/usecase/session"
)

// AuthService is implemented by usecase/auth.UseCase.
type AuthService interface {
	SendSignInCode(ctx context.Context, email, password string) error
	SignIn(ctx context.Context, cookies session.CookieWriter, creds authUC.Credentials, client authUC.Client) (*domain.User, error)
	SendSignUpCode(ctx context.Context, email string) error
	SignUp(ctx context.Context, cookies session.CookieWriter, creds authUC.Credentials, client authUC.Client) (*domain.User, error)
	SignOut(ctx context.Context, token string) error
	SignOutAll(ctx context.Context, userID string) error
}

type AuthHandler struct {
	baseHandler
	uc      AuthService
	cookies httpcontext.CookieConfig
}

func NewAuthHandler(uc AuthService, cookies httpcontext.CookieConfig, adapter *httpcontext.Adapter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		cookies:     cookies,
	}
}

// @Summary Send a sign-in verification code
// @Tags auth
// @Router /api/v1/auth/signin/send-verification-code [post]
func (h *AuthHandler) SendSignInCode(ctx *fasthttp.RequestCtx) {
	var req transport.SendSignInCodeRequest
	if err := transport.Decode(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.SendSignInCode(stdCtx, req.Email, req.Password); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondMessage(ctx, "Check your email for the verification code!")
}

// @Summary Sign in with password and verification code
// @Tags auth
// @Router /api/v1/auth/signin [post]
func (h *AuthHandler) SignIn(ctx *fasthttp.RequestCtx) {
	var req transport.SignInRequest
	if err := transport.Decode(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	creds := authUC.Credentials{Email: req.Email, Password: req.Password, Code: req.Code}
	if _, err := h.uc.SignIn(stdCtx, httpcontext.NewCookies(ctx, h.cookies), creds, clientOf(ctx)); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondMessage(ctx, "Successfully signed in! Welcome back.")
}

// @Summary Send a sign-up verification code
// @Tags auth
// @Router /api/v1/auth/signup/send-verification-code [post]
func (h *AuthHandler) SendSignUpCode(ctx *fasthttp.RequestCtx) {
	var req transport.SendSignUpCodeRequest
	if err := transport.Decode(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.SendSignUpCode(stdCtx, req.Email); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondMessage(ctx, "Check your email for the verification code!")
}

// @Summary Create an account from a verified address
// @Tags auth
// @Router /api/v1/auth/signup [post]
func (h *AuthHandler) SignUp(ctx *fasthttp.RequestCtx) {
	var req transport.SignUpRequest
	if err := transport.Decode(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	creds := authUC.Credentials{Email: req.Email, Password: req.Password, Code: req.Code}
	if _, err := h.uc.SignUp(stdCtx, httpcontext.NewCookies(ctx, h.cookies), creds, clientOf(ctx)); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondMessage(ctx, "You've successfully signed up and verified your account!")
}

// @Summary Sign out the current session
// @Tags auth
// @Router /api/v1/auth/signout [post]
func (h *AuthHandler) SignOut(ctx *fasthttp.RequestCtx) {
	cookies := httpcontext.NewCookies(ctx, h.cookies)
	token := cookies.SessionToken()
	if token == "" {
		h.respondJSON(ctx, http.StatusUnauthorized,
			transport.Failure(domain.ErrCodeUnauthorized, "No active session found"))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	err := h.uc.SignOut(stdCtx, token)
	switch {
	case err == nil:
		cookies.ClearSessionCookie()
		h.respondMessage(ctx, "Successfully signed out")
	case errors.Is(err, domain.ErrUnauthorized):
		cookies.ClearSessionCookie()
		h.respondJSON(ctx, http.StatusUnauthorized,
			transport.Failure(domain.ErrCodeUnauthorized, "Invalid or expired session"))
	default:
		h.respondError(ctx, stdCtx, domain.WrapError(domain.ErrCodeInternal, "Failed to sign out. Please try again.", err))
	}
}

// @Summary Sign out every session of the current user
// @Tags auth
// @Router /api/v1/auth/signout/all [post]
func (h *AuthHandler) SignOutAll(ctx *fasthttp.RequestCtx) {
	current, ok := middleware.CurrentSession(ctx)
	if !ok {
		h.respondError(ctx, context.Background(), domain.ErrUnauthorized)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.SignOutAll(stdCtx, current.User.ID); err != nil {
		h.respondError(ctx, stdCtx, domain.WrapError(domain.ErrCodeInternal, "Failed to sign out. Please try again.", err))
		return
	}
	httpcontext.NewCookies(ctx, h.cookies).ClearSessionCookie()
	h.respondMessage(ctx, "Signed out of all sessions")
}

func clientOf(ctx *fasthttp.RequestCtx) authUC.Client {
	return authUC.Client{
		IP:        httpcontext.ClientIP(ctx),
		UserAgent: string(ctx.Request.Header.UserAgent()),
	}
}
