package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/sessionguard/api/handler"
	"github.com/fastygo/sessionguard/internal/middleware"
)

const apiPrefix = "/api/v1"

type Handlers struct {
	Auth   *apiHandler.AuthHandler
	Users  *apiHandler.UsersHandler
	Health *apiHandler.HealthHandler
}

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

// Middlewares wraps route groups. A nil entry leaves the group unwrapped.
type Middlewares struct {
	RateLimit Middleware
	Session   Middleware
}

func (m Middleware) wrap(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	if m == nil {
		return next
	}
	return m(next)
}

func New(handlers Handlers, mw Middlewares) *router.Router {
	r := router.New()
	api := r.Group(apiPrefix)

	api.GET("/healthz", handlers.Health.Check)

	authenticated := func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return mw.Session.wrap(middleware.RequireAuth(next))
	}
	limited := mw.RateLimit.wrap

	auth := api.Group("/auth")
	auth.POST("/signin/send-verification-code", limited(handlers.Auth.SendSignInCode))
	auth.POST("/signin", limited(handlers.Auth.SignIn))
	auth.POST("/signup/send-verification-code", limited(handlers.Auth.SendSignUpCode))
	auth.POST("/signup", limited(handlers.Auth.SignUp))
	auth.POST("/signout", limited(handlers.Auth.SignOut))
	auth.POST("/signout/all", limited(authenticated(handlers.Auth.SignOutAll)))

	users := api.Group("/users")
	users.GET("/all", authenticated(handlers.Users.All))
	users.GET("/me", authenticated(handlers.Users.Me))

	return r
}
