package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jengzang/charge-sim-backend/internal/api"
	"github.com/jengzang/charge-sim-backend/internal/config"
	"github.com/jengzang/charge-sim-backend/internal/database"
	"github.com/jengzang/charge-sim-backend/internal/enrichment"
	"github.com/jengzang/charge-sim-backend/internal/logger"
	"github.com/jengzang/charge-sim-backend/internal/observability"
	"github.com/jengzang/charge-sim-backend/internal/repository"
	"github.com/jengzang/charge-sim-backend/internal/service"
	"github.com/jengzang/charge-sim-backend/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer zl.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := database.Open(database.Config{Path: cfg.DBPath, Migrate: true}, zl)
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := openStore(ctx, cfg, db)
	if err != nil {
		return err
	}

	metrics, err := observability.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	client := enrichment.NewHTTPClient(enrichment.Config{
		RouteURL:    cfg.RouteURL,
		GeoURL:      cfg.GeoURL,
		OCMURL:      cfg.OCMURL,
		OCMKey:      cfg.OCMKey,
		Timeout:     cfg.CallTimeout,
		Rate:        cfg.CallRate,
		InsecureTLS: cfg.InsecureTLS,
	}, zl, metrics)

	svc := service.NewSimulationService(service.Deps{
		Store:          st,
		Cities:         repository.NewCityRepository(db),
		Segments:       repository.NewTMJARepository(db),
		Client:         client,
		ExactDeviation: cfg.ExactDeviation,
		Log:            zl,
		Metrics:        metrics,
	})

	// 初始化路由
	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           api.SetupRouter(cfg, svc, zl, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("Server starting", zap.String("addr", cfg.Port), zap.String("store", cfg.StoreBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, db *sql.DB) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		return store.NewSQLiteStore(db), nil
	case config.StoreDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return store.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.StoreTable), nil
	default:
		fs, err := store.NewFileStore(cfg.StoreDir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	}
}
