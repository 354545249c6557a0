// @title           Agency Portal Backend API
// @version         1.0.0
// @description     Design order lifecycle for the agency client portal: deliveries, revisions, approval and file downloads.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"agency-portal-backend/docs"
	"agency-portal-backend/internal/config"
	"agency-portal-backend/internal/database"
	"agency-portal-backend/internal/handlers"
	"agency-portal-backend/internal/middleware"
	"agency-portal-backend/internal/notify"
	"agency-portal-backend/internal/services"
	"agency-portal-backend/internal/supabase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := supabase.NewDatabaseClient(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	if err := database.NewMigrator(dbClient.DB(), logger).Run(ctx); err != nil {
		return err
	}

	supabaseClient, err := supabase.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize supabase client: %w", err)
	}
	storageClient := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	profileClient := supabase.NewProfileClient(supabaseClient.Supabase)
	functionsClient := supabase.NewFunctionsClient(supabaseClient.Supabase, cfg.NotifyFunctionName)

	dispatcher := notify.NewDispatcher(profileClient, functionsClient, logger, cfg.NotifyTimeout)

	service := services.NewDesignOrderService(dbClient, storageClient, dispatcher, logger, cfg.SignedURLTTLSeconds)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, logger, dbClient, service),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = dispatcher.Wait(drainCtx)

	return err
}

func newRouter(cfg *config.Config, logger *zap.Logger, db handlers.Pinger, service *services.DesignOrderService) http.Handler {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	configureSwagger(cfg)

	router := gin.New()
	router.Use(middleware.RequestLogger(logger), middleware.Recovery(logger))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", handlers.HealthHandler)
	router.GET("/ready", handlers.ReadyHandler(db))

	orders := handlers.NewDesignOrdersHandler(service)
	admin := handlers.NewAdminHandler(service, cfg.MaxDeliveryUploadBytes)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))

	api.GET("/design-orders", orders.ListOrders)
	api.GET("/design-orders/:order_id", orders.GetOrder)
	api.GET("/design-orders/:order_id/feedback", orders.ListFeedback)
	api.POST("/design-orders/:order_id/approve", orders.Approve)
	api.POST("/design-orders/:order_id/revisions", orders.RequestRevision)
	api.GET("/design-orders/:order_id/files/:file_id/url", orders.FileURL)

	adminAPI := api.Group("/admin", middleware.RequireAdmin())
	adminAPI.GET("/design-orders/:order_id", admin.GetOrder)
	adminAPI.POST("/design-orders/:order_id/deliveries", admin.CreateDelivery)
	adminAPI.PATCH("/design-orders/:order_id/status", admin.UpdateStatus)

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(router)
}

// configureSwagger points the docs at BASE_URL so "Try it out" hits this deployment.
func configureSwagger(cfg *config.Config) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil || baseURL.Host == "" {
		return
	}
	docs.SwaggerInfo.Host = baseURL.Host
	if baseURL.Scheme == "https" {
		docs.SwaggerInfo.Schemes = []string{"https", "http"}
	} else {
		docs.SwaggerInfo.Schemes = []string{"http", "https"}
	}
}
