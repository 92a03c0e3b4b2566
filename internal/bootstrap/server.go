package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/travelbooking/api"
	"github.com/Domenick1991/travelbooking/config"
	"github.com/Domenick1991/travelbooking/internal/service/booking"
	"github.com/Domenick1991/travelbooking/internal/service/flights"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	serviceName = "travelbooking"
	swaggerFile = "travelbooking.swagger.json"
)

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
	logger     *zap.Logger
}

// Run starts the gRPC health server and the HTTP API and blocks until ctx
// is cancelled or a server fails.
func Run(ctx context.Context, cfg *config.Config, flightSvc flights.FlightUseCase, bookingSvc booking.BookingUseCase, logger *zap.Logger) error {
	s := NewServers(cfg, flightSvc, bookingSvc, logger)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- s.grpcServer.Serve(lis) }()
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("servers started", zap.String("http", cfg.HTTP.Address), zap.String("grpc", cfg.GRPC.Address))

	select {
	case err := <-errCh:
		s.grpcServer.Stop()
		return err
	case <-ctx.Done():
		return s.Shutdown(cfg.HTTP.ShutdownTimeout())
	}
}

func NewServers(cfg *config.Config, flightSvc flights.FlightUseCase, bookingSvc booking.BookingUseCase, logger *zap.Logger) *Servers {
	grpcSrv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := health.NewServer()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, hs)

	return &Servers{
		grpcServer: grpcSrv,
		health:     hs,
		httpServer: &http.Server{
			Addr:    cfg.HTTP.Address,
			Handler: otelhttp.NewHandler(NewRouter(cfg, flightSvc, bookingSvc, logger), serviceName),
		},
		logger: logger,
	}
}

// NewRouter mounts the REST API under /api/v1 plus the health check and
// the swagger UI when swagger_dir is configured.
func NewRouter(cfg *config.Config, flightSvc flights.FlightUseCase, bookingSvc booking.BookingUseCase, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	api.NewFlightHandler(flightSvc).Register(v1)
	api.NewReservationHandler(bookingSvc).Register(v1)

	if cfg.HTTP.SwaggerDir != "" {
		router.StaticFile("/swagger/"+swaggerFile, cfg.HTTP.SwaggerDir+"/"+swaggerFile)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger/"+swaggerFile),
		)))
	}
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
		}
		if len(c.Errors) > 0 {
			logger.Error("request failed", append(fields, zap.String("error", c.Errors.String()))...)
			return
		}
		logger.Debug("request", fields...)
	}
}

// Shutdown marks the service as not serving, then drains both servers.
func (s *Servers) Shutdown(timeout time.Duration) error {
	s.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.grpcServer.GracefulStop()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info("servers stopped")
	return nil
}
