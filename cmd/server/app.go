package main

import (
	"net/http"
	"time"

	"github.com/diewo77/sales-portal/auth"
	"github.com/diewo77/sales-portal/gate"
	"github.com/diewo77/sales-portal/internal/config"
	"github.com/diewo77/sales-portal/internal/metrics"
	"github.com/diewo77/sales-portal/internal/middleware"
	"github.com/diewo77/sales-portal/internal/policy"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	handler   http.Handler
	routerCfg *policy.RouterConfig
	metrics   *metrics.Metrics
	jobsCfg   config.JobsConfig
}

// NewApp creates the application with all routes and middleware configured.
func NewApp(routerCfg *policy.RouterConfig, m *metrics.Metrics, jobsCfg config.JobsConfig) *App {
	app := &App{
		mux:       http.NewServeMux(),
		routerCfg: routerCfg,
		metrics:   m,
		jobsCfg:   jobsCfg,
	}
	app.setupRoutes()

	var h http.Handler = app.mux
	h = middleware.Metrics(m)(h)
	h = auth.Middleware(h)
	h = middleware.Recover(h)
	h = middleware.Logging(h)
	h = middleware.RequestID(h)
	app.handler = h
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Public routes
	// ─────────────────────────────────────────────────────────────────────────
	ah := a.routerCfg.AuthHandler
	a.mux.HandleFunc("GET /health", a.routerCfg.HealthHandler.Health)
	a.mux.Handle("GET /metrics", a.metrics.Handler())
	a.mux.HandleFunc("POST /login", ah.Login)
	a.mux.HandleFunc("POST /logout", ah.Logout)
	a.mux.Handle("GET /me", a.requireCaller(http.HandlerFunc(ah.Me)))

	// ─────────────────────────────────────────────────────────────────────────
	// Catalog
	// ─────────────────────────────────────────────────────────────────────────
	ph := a.routerCfg.ProductHandler
	a.mux.Handle("GET /products", a.protect(policy.ResourceProduct, gate.ActionList, ph.List))
	a.mux.Handle("POST /products", a.protect(policy.ResourceProduct, gate.ActionCreate, ph.Create))
	a.mux.Handle("GET /products/{id}", a.protect(policy.ResourceProduct, gate.ActionView, ph.View))
	a.mux.Handle("PUT /products/{id}", a.protect(policy.ResourceProduct, gate.ActionUpdate, ph.Update))
	a.mux.Handle("DELETE /products/{id}", a.protect(policy.ResourceProduct, gate.ActionDelete, ph.Delete))

	ch := a.routerCfg.ClientHandler
	a.mux.Handle("GET /clients", a.protect(policy.ResourceClient, gate.ActionList, ch.List))
	a.mux.Handle("POST /clients", a.protect(policy.ResourceClient, gate.ActionCreate, ch.Create))
	a.mux.Handle("GET /clients/{id}", a.protect(policy.ResourceClient, gate.ActionView, ch.View))
	a.mux.Handle("PUT /clients/{id}", a.protect(policy.ResourceClient, gate.ActionUpdate, ch.Update))
	a.mux.Handle("DELETE /clients/{id}", a.protect(policy.ResourceClient, gate.ActionDelete, ch.Delete))

	prh := a.routerCfg.PricingHandler
	a.mux.Handle("GET /price-tables", a.protect(policy.ResourcePricing, gate.ActionList, prh.ListTables))
	a.mux.Handle("POST /price-tables", a.protect(policy.ResourcePricing, gate.ActionCreate, prh.CreateTable))
	a.mux.Handle("PUT /price-tables/{id}", a.protect(policy.ResourcePricing, gate.ActionUpdate, prh.UpdateTable))
	a.mux.Handle("GET /prices", a.protect(policy.ResourcePricing, gate.ActionList, prh.ListPrices))
	a.mux.Handle("GET /prices/lookup", a.protect(policy.ResourcePricing, gate.ActionView, prh.Lookup))
	a.mux.Handle("POST /prices", a.protect(policy.ResourcePricing, gate.ActionCreate, prh.CreatePrice))
	a.mux.Handle("DELETE /prices/{id}", a.protect(policy.ResourcePricing, gate.ActionDelete, prh.DeletePrice))

	// ─────────────────────────────────────────────────────────────────────────
	// Orders; per-order checks run in the service
	// ─────────────────────────────────────────────────────────────────────────
	oh := a.routerCfg.OrderHandler
	a.mux.Handle("GET /orders", a.protect(policy.ResourceOrder, gate.ActionList, oh.List))
	a.mux.Handle("POST /orders", a.protect(policy.ResourceOrder, gate.ActionCreate, oh.Create))
	a.mux.Handle("GET /orders/{id}", a.requireCaller(http.HandlerFunc(oh.View)))
	a.mux.Handle("DELETE /orders/{id}", a.requireCaller(http.HandlerFunc(oh.Delete)))
	a.mux.Handle("POST /orders/{id}/items", a.requireCaller(http.HandlerFunc(oh.AddLine)))
	a.mux.Handle("PUT /orders/{id}/items/{item_id}", a.requireCaller(http.HandlerFunc(oh.UpdateLine)))
	a.mux.Handle("DELETE /orders/{id}/items/{item_id}", a.requireCaller(http.HandlerFunc(oh.DeleteLine)))
	a.mux.Handle("POST /orders/{id}/send", a.requireCaller(http.HandlerFunc(oh.Send)))
	a.mux.Handle("POST /orders/{id}/approve", a.requireCaller(http.HandlerFunc(oh.Approve)))
	a.mux.Handle("POST /orders/{id}/reject", a.requireCaller(http.HandlerFunc(oh.Reject)))

	a.mux.Handle("POST /simulate", a.requireCaller(http.HandlerFunc(a.routerCfg.SimulateHandler.Simulate)))

	// ─────────────────────────────────────────────────────────────────────────
	// Reports
	// ─────────────────────────────────────────────────────────────────────────
	rh := a.routerCfg.ReportHandler
	a.mux.Handle("GET /reports/sales-summary", a.protect(policy.ResourceReport, gate.ActionView, rh.SalesSummary))
	a.mux.Handle("GET /reports/top-items", a.protect(policy.ResourceReport, gate.ActionView, rh.TopItems))
	a.mux.Handle("GET /reports/mtd-ytd", a.protect(policy.ResourceReport, gate.ActionView, rh.MTDYTD))
	a.mux.Handle("GET /reports/heatmap-uf", a.protect(policy.ResourceReport, gate.ActionView, rh.HeatmapByState))

	// ─────────────────────────────────────────────────────────────────────────
	// Jobs (staff only)
	// ─────────────────────────────────────────────────────────────────────────
	jh := a.routerCfg.JobHandler
	limitLaunch := middleware.RateLimit(a.jobsCfg.LaunchRate, a.jobsCfg.LaunchBurst, 10*time.Minute, func() {
		a.metrics.JobLaunchRejected.WithLabelValues("rate_limited").Inc()
	})
	a.mux.Handle("POST /jobs", a.protect(policy.ResourceJob, gate.ActionCreate, limitLaunch(http.HandlerFunc(jh.Launch)).ServeHTTP))
	a.mux.Handle("GET /jobs", a.protect(policy.ResourceJob, gate.ActionList, jh.List))
	a.mux.Handle("GET /jobs/{id}", a.protect(policy.ResourceJob, gate.ActionView, jh.View))
	a.mux.Handle("GET /jobs/{id}/logs", a.protect(policy.ResourceJob, gate.ActionView, jh.Logs))

	// ─────────────────────────────────────────────────────────────────────────
	// Admin
	// ─────────────────────────────────────────────────────────────────────────
	auh := a.routerCfg.AdminUserHandler
	a.mux.Handle("GET /admin/users", a.requireStaff(http.HandlerFunc(auh.List)))
	a.mux.Handle("PUT /admin/users/{id}/staff", a.requireStaff(http.HandlerFunc(auh.SetStaff)))
	a.mux.Handle("PUT /admin/users/{id}/representative", a.requireStaff(http.HandlerFunc(auh.SetRepresentative)))
}

// requireCaller resolves the caller and answers 401 without one.
func (a *App) requireCaller(next http.Handler) http.Handler {
	return a.routerCfg.AuthGate.ResolveCaller()(next)
}

// protect resolves the caller and checks resourceType/action on the gate.
func (a *App) protect(resourceType string, action gate.Action, h http.HandlerFunc) http.Handler {
	return a.requireCaller(a.routerCfg.AuthGate.RequirePermission(resourceType, action)(h))
}

func (a *App) requireStaff(next http.Handler) http.Handler {
	return a.requireCaller(a.routerCfg.AuthGate.RequireStaff()(next))
}
