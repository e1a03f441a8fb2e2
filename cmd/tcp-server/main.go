package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"lecturehub/database"
	"lecturehub/internal/config"
	"lecturehub/internal/microservices/tcp"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := config.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.ConnectPool(ctx, cfg, logger)
	if err != nil {
		logger.Error("postgres_connect_failed", "error", err)
		os.Exit(1)
	}

	hot, err := tcp.NewProgressRedisRepo(ctx, tcp.RedisOptions{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		TTL:      cfg.CacheTTL,
	})
	if err != nil {
		pool.Close()
		logger.Error("redis_connect_failed", "error", err)
		os.Exit(1)
	}

	repo := tcp.NewHybridProgressRepository(hot, tcp.NewProgressPostgresRepo(pool), tcp.BatchOptions{
		FlushInterval: cfg.ProgressFlushInterval,
		BatchSize:     cfg.ProgressBatchSize,
	}, logger)

	writerCtx, stopWriter := context.WithCancel(context.Background())
	repo.StartBatchWriter(writerCtx)

	tcpAddr := fmt.Sprintf(":%d", cfg.TCPPort)
	manager := tcp.NewConnectionManager(repo, tcp.NewTCPAuthService(cfg.JWTSecret), logger)
	server := tcp.NewServer(tcpAddr, manager)

	logger.Info("starting_tcp_server",
		"tcp_addr", tcpAddr,
		"redis_addr", cfg.RedisAddr(),
		"flush_interval", cfg.ProgressFlushInterval.String(),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("received_shutdown_signal")
		server.Stop()
	case err := <-errChan:
		logger.Error("server_error", "error", err.Error())
		exitCode = 1
	}

	// connections are gone; flush what they queued before closing the stores
	stopWriter()
	if err := repo.Close(); err != nil {
		logger.Error("repository_close_failed", "error", err)
	}
	logger.Info("server_stopped_gracefully")
	os.Exit(exitCode)
}
