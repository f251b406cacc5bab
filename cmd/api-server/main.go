package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"property-manager/internal/api"
	"property-manager/internal/audit"
	"property-manager/internal/auth"
	"property-manager/internal/config"
	"property-manager/internal/datasets"
	"property-manager/internal/health"
	"property-manager/internal/ledger"
	"property-manager/internal/logging"
	"property-manager/internal/metrics"
	"property-manager/internal/notify"
	"property-manager/internal/onboarding"
	"property-manager/internal/reports"
	"property-manager/internal/storage/block"
	"property-manager/internal/store"
	"property-manager/internal/web"
)

const (
	healthTimeout  = 5 * time.Second
	healthInterval = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	gin.SetMode(gin.ReleaseMode)
	if err := run(cfg, logger); err != nil {
		logger.Fatal("API server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		return err
	}
	ledgerStore, err := ledger.Open(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer ledgerStore.Close()

	blobs, err := block.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	engine, err := datasets.NewEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	publisher, err := audit.NewFilePublisher(cfg.Audit.Path)
	if err != nil {
		return err
	}
	defer publisher.Close()

	templates, err := web.Templates()
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	tokens := auth.NewTokenManager([]byte(cfg.Auth.SessionSecret), cfg.Auth.SessionIssuer, config.Duration(cfg.Auth.SessionTTL))
	builder := reports.NewBuilder(s, ledgerStore)

	var m *metrics.Metrics
	if cfg.Server.MetricsEnabled {
		m = metrics.New()
	}

	checker := health.NewChecker(healthTimeout, logger)
	checker.Register("store", func(ctx context.Context) error {
		if err := s.Health(ctx); err != nil {
			return err
		}
		if m != nil {
			counts, err := s.Counts()
			if err != nil {
				return err
			}
			m.SetStoreCounts(counts)
		}
		return nil
	})
	checker.Register("ledger", ledgerStore.Health)
	checker.Register("blobs", blobs.Health)
	checker.Register("datasets", engine.Health)
	if m != nil {
		checker.OnResult(m.SetHealth)
	}

	router := api.NewRouter(api.Deps{
		Store:          s,
		Ledger:         ledgerStore,
		Blobs:          blobs,
		Auth:           auth.NewAuthenticator(s.Users, tokens, cfg.Auth.BcryptCost),
		Onboarding:     onboarding.NewService(s),
		Reports:        builder,
		Datasets:       datasets.NewService(s, blobs, engine, builder, logger),
		SMS:            notify.New(cfg.SMS, logger),
		Audit:          audit.NewRecorder(publisher, logger),
		Metrics:        m,
		Health:         checker,
		Templates:      templates,
		Logger:         logger,
		CookieSecure:   cfg.Auth.CookieSecure,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		LoginRate:      cfg.Auth.LoginRateLimit,
		LoginBurst:     cfg.Auth.LoginBurst,
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      c.Handler(router),
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout),
	}

	errCh := make(chan error, 2)

	var grpcServer *grpc.Server
	if cfg.Server.GRPCHealthPort > 0 {
		grpcServer = grpc.NewServer()
		healthServer := grpchealth.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		reflection.Register(grpcServer)

		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCHealthPort))
		if err != nil {
			return fmt.Errorf("failed to listen on grpc health port %d: %w", cfg.Server.GRPCHealthPort, err)
		}
		go checker.Watch(ctx, healthServer, healthInterval)
		go func() {
			logger.Info("gRPC health server listening", zap.String("addr", lis.Addr().String()))
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc health server: %w", err)
			}
		}()
	}

	go func() {
		logger.Info("API server listening", zap.String("addr", srv.Addr), zap.String("database", cfg.Database.Driver), zap.String("storage", cfg.Storage.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down API server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	logger.Info("API server stopped")
	return nil
}
