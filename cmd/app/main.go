package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"townsquare/cmd/fx/bank_account_fx"
	"townsquare/cmd/fx/capacity_fx"
	"townsquare/cmd/fx/config_fx"
	"townsquare/cmd/fx/controllers_fx"
	"townsquare/cmd/fx/db_fx"
	"townsquare/cmd/fx/gateway_fx"
	"townsquare/cmd/fx/logger_fx"
	"townsquare/cmd/fx/memcache_fx"
	"townsquare/cmd/fx/outbox_fx"
	"townsquare/cmd/fx/payment_service_fx"
	"townsquare/cmd/fx/tracing_fx"
	"townsquare/internal/api/controllers"
	"townsquare/internal/config"
	"townsquare/pkg/middleware"
)

func main() {
	app := fx.New(
		config_fx.Module,
		logger_fx.Module,
		tracing_fx.Module,
		db_fx.Module,
		gateway_fx.Module,
		memcache_fx.Module,
		capacity_fx.Module,
		payment_service_fx.Module,
		bank_account_fx.Module,
		outbox_fx.Module,
		controllers_fx.Module,

		fx.Invoke(StartServer),
		fx.Provide(ProvideRouter),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, cfg config.App, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() {
				log.Info("Starting HTTP server", zap.String("addr", srv.Addr))
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("Failed to start server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}

func ProvideRouter(
	cfg config.App,
	log *zap.Logger,
	paymentController *controllers.PaymentController,
	bankAccountController *controllers.BankAccountController,
	eventController *controllers.EventController) *gin.Engine {

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	// otelgin starts the server span that TraceIDMiddleware reads.
	r.Use(otelgin.Middleware("townsquare"))
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.RequestLogger(log.Named("http")))

	RegisterRoutes(r, []byte(cfg.JWTSecret), paymentController, bankAccountController, eventController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	jwtSecret []byte,
	paymentController *controllers.PaymentController,
	bankAccountController *controllers.BankAccountController,
	eventController *controllers.EventController) {

	auth := middleware.JWTAuthMiddleware(jwtSecret)

	// The gateway authenticates with a signature header, not a bearer token.
	r.POST("/payments/webhook", paymentController.HandleWebhook)

	paymentGroup := r.Group("/payments", auth)
	paymentGroup.POST("/initialize", paymentController.Initialize)
	paymentGroup.GET("/verify/:reference", paymentController.Verify)
	paymentGroup.GET("", paymentController.ListPayments)
	paymentGroup.GET("/:id", paymentController.GetPayment)
	paymentGroup.POST("/:id/refund", paymentController.Refund)

	bankAccountGroup := r.Group("/bank-accounts", auth)
	bankAccountGroup.POST("", bankAccountController.Create)
	bankAccountGroup.GET("", bankAccountController.List)
	bankAccountGroup.GET("/resolve", bankAccountController.Resolve)
	bankAccountGroup.POST("/:id/verify", bankAccountController.Verify)
	bankAccountGroup.DELETE("/:id", bankAccountController.Remove)
	bankAccountGroup.PUT("/:id/default", bankAccountController.SetDefault)

	adminGroup := r.Group("/admin", auth, middleware.RoleMiddleware("admin"))
	adminGroup.GET("/reconciliation-faults", paymentController.ListFaults)

	r.GET("/events/:id", eventController.GetEvent)
	eventGroup := r.Group("/events", auth)
	eventGroup.POST("/:id/rsvp", eventController.RSVP)
	eventGroup.DELETE("/:id/rsvp", eventController.CancelRSVP)
}
