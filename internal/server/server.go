package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kolamart/kolamart/internal/config"
	notificationdomain "github.com/kolamart/kolamart/internal/notification/domain"
	orderdomain "github.com/kolamart/kolamart/internal/order/domain"
	paymentdomain "github.com/kolamart/kolamart/internal/payment/domain"
	productdomain "github.com/kolamart/kolamart/internal/product/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	orderSvc   orderdomain.Service
	productSvc productdomain.Service
	paymentSvc paymentdomain.Service
	alerts     notificationdomain.Repository
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	OrderSvc   orderdomain.Service
	ProductSvc productdomain.Service
	PaymentSvc paymentdomain.Service
	Alerts     notificationdomain.Repository
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		orderSvc:   p.OrderSvc,
		productSvc: p.ProductSvc,
		paymentSvc: p.PaymentSvc,
		alerts:     p.Alerts,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.engine

	r.POST("/webhooks/:provider", s.HandlePaymentWebhook)

	api := r.Group("/api/v1")
	{
		api.POST("/orders", s.CreateOrder)
		api.GET("/orders/:id", s.GetOrder)
		api.POST("/orders/:id/cancel", s.CancelOrder)

		api.POST("/payments/initialize", s.InitializePayment)
		api.GET("/payments/verify/:provider/:reference", s.VerifyPayment)

		api.GET("/products", s.ListProducts)
		api.GET("/products/:id", s.GetProduct)

		api.GET("/customers/:id/alerts", s.ListCustomerAlerts)
	}

	admin := r.Group("/api/v1/admin", BearerAuth(s.cfg.APIToken))
	{
		admin.GET("/metrics", gin.WrapH(promhttp.Handler()))

		admin.POST("/products", s.CreateProduct)
		admin.POST("/products/stock", s.AdjustStock)

		admin.PATCH("/orders/:id/status", s.AdvanceOrderStatus)

		admin.GET("/alerts", s.ListAdminAlerts)
		admin.POST("/alerts/:id/read", s.MarkAlertRead)
	}
}
