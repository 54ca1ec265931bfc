package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billingapp "github.com/facturado/backend/internal/application/billing"
	"github.com/facturado/backend/internal/infrastructure/auth"
	"github.com/facturado/backend/internal/infrastructure/config"
	"github.com/facturado/backend/internal/infrastructure/logger"
	"github.com/facturado/backend/internal/infrastructure/persistence"
	"github.com/facturado/backend/internal/interfaces/http/handler"
	"github.com/facturado/backend/internal/interfaces/http/middleware"
	"github.com/facturado/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting facturado backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connected and migrated")

	// Repositories
	orderRepo := persistence.NewGormSalesOrderRepository(db)
	noteRepo := persistence.NewGormCreditNoteRepository(db)

	// Application services
	orderService := billingapp.NewSalesOrderService(orderRepo, noteRepo, db)
	paymentService := billingapp.NewPaymentService(orderRepo, db, log)
	noteService := billingapp.NewCreditNoteService(noteRepo, orderRepo, db)

	// HTTP handlers
	orderHandler := handler.NewSalesOrderHandler(orderService, paymentService)
	noteHandler := handler.NewCreditNoteHandler(noteService)
	systemHandler := handler.NewSystemHandler(db)

	jwtService := auth.NewJWTService(cfg.JWT)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.Recovery(log),
		middleware.CORS(),
	)

	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(&router.BillingRoutes{
		Orders: orderHandler,
		Notes:  noteHandler,
		Middleware: []gin.HandlerFunc{
			middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
				JWTService: jwtService,
				Logger:     log,
			}),
		},
	})
	r.Setup()

	engine.GET("/api/v1/system/info", systemHandler.Info)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
