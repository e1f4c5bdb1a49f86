package server

import (
	"context"
	"net/http"

	"github.com/powerman/structlog"

	"tradedesk/internal/auth"
	"tradedesk/internal/config"
	"tradedesk/internal/models"
	"tradedesk/internal/pipeline"
	"tradedesk/internal/store"
	"tradedesk/internal/websocket"
)

// ContextKey is the type used for request context keys.
type ContextKey string

const (
	CtxEmpID ContextKey = "empID"
	CtxRole  ContextKey = "role"
)

// HeaderEmployeeID names the acting employee on API requests.
const HeaderEmployeeID = "X-Employee-ID"

// App holds shared dependencies for the application.
type App struct {
	Config    config.Config
	Store     *store.Store
	Pipeline  *pipeline.Pipeline
	Hub       *websocket.Hub
	PermCache *auth.PermCache
	Limiter   *RateLimiter
	Log       *structlog.Logger
}

// New wires an App over s. Committed changes are broadcast on hub by the
// store's notifier, which the caller sets up.
func New(cfg config.Config, s *store.Store, hub *websocket.Hub) *App {
	log := structlog.New(structlog.KeyUnit, "server")
	return &App{
		Config:    cfg,
		Store:     s,
		Pipeline:  pipeline.New(s, structlog.New(structlog.KeyUnit, "pipeline")),
		Hub:       hub,
		PermCache: auth.NewPermCache(),
		Limiter:   NewRateLimiter(),
		Log:       log,
	}
}

// Handler returns the full HTTP handler with middleware applied.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", 405)
			return
		}
		a.handleLogin(w, r)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.HandleWebSocket(a.Hub, w, r)
	})
	mux.HandleFunc("/api/v1/", a.routeAPI)

	var h http.Handler = mux
	h = RequireRBAC(a.PermCache)(h)
	h = RequireEmployee(a.Store)(h)
	h = RateLimitMiddleware(a.Limiter)(h)
	h = SecurityHeaders(h)
	h = GzipMiddleware(h)
	return LoggingMiddleware(a.Log)(h)
}

func empID(r *http.Request) string {
	id, _ := r.Context().Value(CtxEmpID).(string)
	return id
}

func withEmployee(ctx context.Context, e models.Employee) context.Context {
	ctx = context.WithValue(ctx, CtxEmpID, e.ID)
	return context.WithValue(ctx, CtxRole, e.Role)
}
