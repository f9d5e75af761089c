package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bookstore/services/market/internal/db"
	grpcserver "github.com/bookstore/services/market/internal/grpc"
	"github.com/bookstore/services/market/internal/metrics"
	"github.com/bookstore/services/market/internal/ops"
	"github.com/bookstore/services/market/internal/repo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

type brokerStatus interface {
	IsHealthy() bool
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose health checks and store metrics over HTTP and gRPC",
		Long: `serve keeps the market store open and answers /healthz, /readyz and
/metrics over HTTP plus the standard gRPC health protocol until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("grpc-port") {
				a.cfg.GRPCPort, _ = cmd.Flags().GetString("grpc-port")
			}
			if cmd.Flags().Changed("http-port") {
				a.cfg.HTTPPort, _ = cmd.Flags().GetString("http-port")
			}
			return db.Scope(cmd.Context(), a.cfg.Database, a.log, a.serve)
		},
	}

	cmd.Flags().String("grpc-port", "", "gRPC health port (env MARKET_GRPC_PORT)")
	cmd.Flags().String("http-port", "", "HTTP ops port (env MARKET_HTTP_PORT)")
	return cmd
}

func (a *app) serve(ctx context.Context, database *db.DB) error {
	log := a.log

	log.Info("Running database migrations...")
	if err := db.RunMigrations(ctx, database); err != nil {
		return err
	}

	var broker brokerStatus
	if a.cfg.RabbitMQURL != "" {
		publisher := a.publisher(log)
		defer publisher.Close()
		broker = publisher
	}

	marketRepo := repo.NewMarketRepository(database, log)
	store := metrics.NewStoreCollector(marketRepo.GetStats, log)
	registry := metrics.NewServeRegistry(store)

	healthServer := grpcserver.NewHealthServer(database, broker, log)
	grpcServer := grpcserver.NewServer(healthServer, log)

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", a.cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen on gRPC port: %w", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", a.cfg.HTTPPort),
		Handler:      ops.NewHandler(database, broker, registry, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		log.Info("Starting gRPC server", zap.String("address", grpcListener.Addr().String()))
		if err := grpcServer.Serve(grpcListener); err != nil {
			errCh <- fmt.Errorf("serve gRPC: %w", err)
		}
	}()

	go func() {
		log.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve HTTP: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case serveErr = <-errCh:
		log.Error("Server failed, shutting down", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	grpcServer.GracefulStop()

	log.Info("Server stopped")
	return serveErr
}
