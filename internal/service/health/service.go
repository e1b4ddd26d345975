package health

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oggyb/galatea/internal/app"
)

// ServiceName is the gRPC health service name reported next to the overall "" entry.
const ServiceName = "galatea.API"

// Report is the per-dependency readiness outcome; values are "ok" or the error text.
type Report map[string]string

// Checker pings the database and Redis.
type Checker struct {
	appCtx *app.AppContext
}

func NewChecker(appCtx *app.AppContext) *Checker {
	return &Checker{appCtx: appCtx}
}

// Check returns a report and whether every dependency answered.
func (c *Checker) Check(ctx context.Context) (Report, bool) {
	report := Report{}
	ok := true
	record := func(name string, err error) {
		if err != nil {
			ok = false
			report[name] = err.Error()
			c.appCtx.Logger.Warn("health check failed", "dependency", name, "err", err)
			return
		}
		report[name] = "ok"
	}

	record("database", c.pingDB(ctx))
	record("redis", c.pingRedis(ctx))
	return report, ok
}

func (c *Checker) pingDB(ctx context.Context) error {
	if c.appCtx.DB == nil {
		return errors.New("not configured")
	}
	sqlDB, err := c.appCtx.DB.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (c *Checker) pingRedis(ctx context.Context) error {
	if c.appCtx.RedisCache == nil {
		return errors.New("not configured")
	}
	return c.appCtx.RedisCache.Ping(ctx)
}

// Service is grpc.health.v1.Health with statuses refreshed on every Check.
type Service struct {
	*health.Server
	checker *Checker
}

func NewService(checker *Checker) *Service {
	return &Service{Server: health.NewServer(), checker: checker}
}

// Check pings the dependencies, updates the stored statuses and answers from them.
func (s *Service) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	s.Refresh(ctx)
	return s.Server.Check(ctx, req)
}

// Refresh sets both the overall and the API status from a fresh check.
func (s *Service) Refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if _, ok := s.checker.Check(ctx); !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.SetServingStatus("", status)
	s.SetServingStatus(ServiceName, status)
}

// Registrar ties the health service into the gRPC server.
type Registrar struct {
	svc *Service
}

func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// Register attaches the health service implementation to the gRPC server.
func (r *Registrar) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, r.svc)
}
