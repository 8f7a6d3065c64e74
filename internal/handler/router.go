package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"keyshop/internal/handler/api"
	"keyshop/internal/handler/middleware"
	"keyshop/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(engine *gin.Engine, cfg config.Config, checkoutHandler *api.CheckoutHandler, stockHandler *api.StockHandler, webhookHandler *api.WebhookHandler) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, checkoutHandler, stockHandler, webhookHandler)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, checkoutHandler *api.CheckoutHandler, stockHandler *api.StockHandler, webhookHandler *api.WebhookHandler) {
	engine.GET("/health", healthCheck)

	apiGroup := engine.Group("/api")
	{
		checkout := apiGroup.Group("/checkout")
		{
			addRoutes(checkout, []route{
				{Method: http.MethodPost, Path: "", Handler: checkoutHandler.CreateCheckout},
				{Method: http.MethodPost, Path: "/:id/cancel", Handler: checkoutHandler.CancelCheckout},
				{Method: http.MethodPost, Path: "/:id/extend", Handler: checkoutHandler.ExtendCheckout},
			})
		}

		stockGroup := apiGroup.Group("/stock")
		{
			addRoutes(stockGroup, []route{
				{Method: http.MethodGet, Path: "", Handler: stockHandler.ListStock},
				{Method: http.MethodGet, Path: "/:id", Handler: stockHandler.GetStock},
			})
		}

		webhooks := apiGroup.Group("/webhooks")
		{
			addRoutes(webhooks, []route{
				{Method: http.MethodPost, Path: "/payment", Handler: webhookHandler.HandlePayment},
			})
		}
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
