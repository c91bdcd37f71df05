package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/sessionguard/internal/infrastructure/monitor"
	"github.com/fastygo/sessionguard/pkg/httpcontext"
)

// StatusSource is implemented by monitor.Monitor.
type StatusSource interface {
	GetStatus() monitor.Status
}

type HealthHandler struct {
	baseHandler
	monitor StatusSource
}

func NewHealthHandler(mon StatusSource, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

type healthPayload struct {
	Status    string       `json:"status"`
	Redis     string       `json:"redis"`
	Database  string       `json:"database"`
	Outbox    outboxHealth `json:"outbox"`
	CheckedAt time.Time    `json:"checked_at"`
}

type outboxHealth struct {
	Online  bool `json:"online"`
	Pending int  `json:"pending"`
}

// @Summary Health check
// @Tags health
// @Router /api/v1/healthz [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := healthPayload{
		Status:    "healthy",
		Redis:     connection(status.Redis),
		Database:  connection(status.PostgreSQL),
		Outbox:    outboxHealth{Online: status.Outbox, Pending: status.OutboxSize},
		CheckedAt: status.LastCheck.UTC(),
	}

	code := http.StatusOK
	if !status.Healthy() {
		payload.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(code)
	h.writeBody(ctx, payload)
}

func connection(ok bool) string {
	if ok {
		return "connected"
	}
	return "disconnected"
}
