package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/sessionguard/api/transport"
	"github.com/fastygo/sessionguard/domain"
	"github.com/fastygo/sessionguard/internal/middleware"
	"github.com/fastygo/sessionguard/pkg/httpcontext"
)

// UsersService is implemented by usecase/users.UseCase.
type UsersService interface {
	List(ctx context.Context) ([]domain.User, error)
	Me(ctx context.Context, current *domain.SessionWithUser) (*domain.User, error)
}

type UsersHandler struct {
	baseHandler
	uc UsersService
}

func NewUsersHandler(uc UsersService, adapter *httpcontext.Adapter, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List users
// @Tags users
// @Success 200 {object} transport.Envelope
// @Router /api/v1/users/all [get]
func (h *UsersHandler) All(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	users, err := h.uc.List(stdCtx)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.UsersResponse{
		Message: "Users retrieved successfully",
		Users:   users,
	})
}

// @Summary Current user
// @Tags users
// @Success 200 {object} transport.Envelope
// @Router /api/v1/users/me [get]
func (h *UsersHandler) Me(ctx *fasthttp.RequestCtx) {
	current, _ := middleware.CurrentSession(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.Me(stdCtx, current)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}
