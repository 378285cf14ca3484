package policy

import (
	"time"

	"github.com/diewo77/sales-portal/internal/handlers"
	"github.com/diewo77/sales-portal/internal/jobs"
	"github.com/diewo77/sales-portal/internal/metrics"
	"github.com/diewo77/sales-portal/internal/models"
	"github.com/diewo77/sales-portal/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Resource types of the catalog and pricing endpoints.
const (
	ResourceProduct    = "product"
	ResourceClient     = "client"
	ResourcePricing    = "pricing"
	ResourceAdminUsers = "admin_users"
)

// RouterDeps is what NewRouterConfig needs from the process bootstrap.
type RouterDeps struct {
	DB             *gorm.DB
	DefaultTable   *models.PriceTable
	Numbers        *services.NumberGenerator
	Runner         *jobs.Runner
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
	CallerCacheTTL time.Duration
}

// RouterConfig holds the configured gate, services and handlers.
type RouterConfig struct {
	AuthGate *AuthGate

	Orders    *services.OrderService
	Simulator *services.Simulator
	Reports   *services.ReportService

	AuthHandler      *handlers.AuthHandler
	AdminUserHandler *handlers.AdminUserHandler
	ProductHandler   *handlers.ProductHandler
	ClientHandler    *handlers.ClientHandler
	PricingHandler   *handlers.PricingHandler
	OrderHandler     *handlers.OrderHandler
	SimulateHandler  *handlers.SimulateHandler
	ReportHandler    *handlers.ReportHandler
	JobHandler       *handlers.JobHandler
	HealthHandler    *handlers.HealthHandler
}

// NewRouterConfig wires the gate, its policies, the services and the
// handlers together.
func NewRouterConfig(d RouterDeps) *RouterConfig {
	if d.CallerCacheTTL <= 0 {
		d.CallerCacheTTL = 5 * time.Minute
	}
	authGate := NewAuthGate(d.DB, d.CallerCacheTTL, d.Logger)
	authGate.RegisterPolicy(ResourceOrder, NewOrderPolicy())
	authGate.RegisterPolicy(ResourceProduct, Authenticated())
	authGate.RegisterPolicy(ResourceClient, Authenticated())
	authGate.RegisterPolicy(ResourcePricing, StaffWrites())
	authGate.RegisterPolicy(ResourceReport, Authenticated())
	authGate.RegisterPolicy(ResourceJob, StaffOnly())
	authGate.RegisterPolicy(ResourceAdminUsers, StaffOnly())

	orders := services.NewOrderService(d.DB, d.DefaultTable, d.Numbers, authGate, d.Metrics)
	simulator := services.NewSimulator(d.DB, d.DefaultTable.Name, d.Metrics)
	reports := services.NewReportService(d.DB)

	return &RouterConfig{
		AuthGate:         authGate,
		Orders:           orders,
		Simulator:        simulator,
		Reports:          reports,
		AuthHandler:      handlers.NewAuthHandler(d.DB),
		AdminUserHandler: handlers.NewAdminUserHandler(d.DB, authGate.Callers),
		ProductHandler:   handlers.NewProductHandler(d.DB),
		ClientHandler:    handlers.NewClientHandler(d.DB),
		PricingHandler:   handlers.NewPricingHandler(d.DB),
		OrderHandler:     handlers.NewOrderHandler(orders),
		SimulateHandler:  handlers.NewSimulateHandler(simulator),
		ReportHandler:    handlers.NewReportHandler(reports),
		JobHandler:       handlers.NewJobHandler(d.Runner, jobs.NewStore(d.DB)),
		HealthHandler:    handlers.NewHealthHandler(d.DB),
	}
}
