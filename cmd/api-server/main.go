package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lecturehub/database"
	"lecturehub/internal/config"
	"lecturehub/internal/microservices/http-api/handler"
	"lecturehub/internal/microservices/http-api/middleware"
	"lecturehub/internal/microservices/http-api/repository"
	"lecturehub/internal/microservices/http-api/service"
	"lecturehub/internal/microservices/tcp"
	"lecturehub/internal/microservices/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := config.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		logger.Error("database_connect_failed", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(logger)
	go hub.Shutdown(ctx)

	progressOpts := []service.ProgressOption{
		service.WithPublisher(hub),
		service.WithBulkWorkers(cfg.BulkWorkers),
		service.WithLogger(logger),
	}
	// HTTP writes go straight to Postgres; drop the sync path's hot copy so it reseeds
	cache, err := tcp.NewProgressRedisRepo(ctx, tcp.RedisOptions{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		TTL:      cfg.CacheTTL,
	})
	if err != nil {
		logger.Warn("redis_unavailable", "error", err)
	} else {
		defer cache.Close()
		progressOpts = append(progressOpts, service.WithCache(cache))
	}

	router := newRouter(cfg, db, hub, progressOpts, logger)

	repo := repository.NewRefreshTokenRepository(db)
	go purgeExpiredTokens(ctx, repo, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("http_server_started", "addr", srv.Addr, "tls", cfg.TLSEnabled)
		var err error
		if cfg.TLSEnabled {
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received_shutdown_signal")
	case err := <-errChan:
		logger.Error("server_error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown_failed", "error", err)
	}
	logger.Info("server_stopped_gracefully")
}

func newRouter(cfg *config.Config, db *gorm.DB, hub *websocket.Hub, progressOpts []service.ProgressOption, logger *slog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	userRepo := repository.NewUserRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	authService := service.NewAuthService(userRepo, refreshRepo, cfg)
	progressService := service.NewProgressService(progressRepo, courseRepo, progressOpts...)
	courseService := service.NewCourseService(courseRepo, progressRepo, profileRepo)
	profileService := service.NewProfileService(profileRepo, courseRepo)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler.NewAuthHandler(authService, cfg.TLSEnabled).RegisterRoutes(r.Group("/auth"))

	authMW := middleware.AuthMiddleware(authService)
	api := r.Group("/api", authMW)
	handler.NewBeaconHandler(progressService, logger).RegisterRoutes(api)

	v1 := api.Group("/v1")
	handler.NewProgressHandler(progressService, courseService).RegisterRoutes(v1.Group("/progress"))
	handler.NewCourseHandler(courseService, progressService).RegisterRoutes(v1.Group("/courses"))
	handler.NewProfileHandler(profileService).RegisterRoutes(v1)

	r.GET("/ws/progress", authMW, websocket.WSHandler(hub, websocket.NewUpgrader(cfg.CORSOrigins)))

	return r
}

func purgeExpiredTokens(ctx context.Context, repo repository.RefreshTokenRepository, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := repo.DeleteExpired(ctx); err != nil {
				logger.Warn("refresh_token_purge_failed", "error", err)
			}
		}
	}
}
