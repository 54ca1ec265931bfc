package router

import (
	"github.com/gin-gonic/gin"

	"github.com/facturado/backend/internal/interfaces/http/handler"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// BillingRoutes registers the billing domain endpoints
type BillingRoutes struct {
	Orders     *handler.SalesOrderHandler
	Notes      *handler.CreditNoteHandler
	Middleware []gin.HandlerFunc
}

// RegisterRoutes implements RouteRegistrar
func (b *BillingRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	billing := rg.Group("/billing")
	if len(b.Middleware) > 0 {
		billing.Use(b.Middleware...)
	}

	orders := billing.Group("/sales-orders")
	{
		orders.POST("", b.Orders.Create)
		orders.GET("", b.Orders.List)
		orders.GET("/:id", b.Orders.GetByID)
		orders.PUT("/:id", b.Orders.Update)
		orders.DELETE("/:id", b.Orders.Delete)

		orders.POST("/:id/confirm", b.Orders.Confirm)
		orders.POST("/:id/emit", b.Orders.Emit)
		orders.POST("/:id/cancel", b.Orders.Cancel)

		orders.POST("/:id/payments", b.Orders.RecordPayment)
		orders.DELETE("/:id/payments/:payment_id", b.Orders.DeletePayment)
	}

	notes := billing.Group("/credit-notes")
	{
		notes.POST("", b.Notes.Create)
		notes.GET("", b.Notes.List)
		notes.GET("/:id", b.Notes.GetByID)
		notes.DELETE("/:id", b.Notes.Delete)

		notes.POST("/:id/authorize", b.Notes.Authorize)
		notes.POST("/:id/cancel", b.Notes.Cancel)
	}
}
