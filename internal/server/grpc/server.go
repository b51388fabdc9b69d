// Package grpcserver runs the operational gRPC endpoint: the standard health
// service and, in development, server reflection.
package grpcserver

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Pinger reports backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configure the endpoint. TLS is enabled when both files are set.
type Options struct {
	TLSCert    string
	TLSKey     string
	Reflection bool
}

// Server wraps a grpc.Server with a health service driven by storage pings.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	log    *zap.Logger
}

// New builds the gRPC server. Health starts as NOT_SERVING until the first successful check.
func New(log *zap.Logger, opts Options) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sopts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(RecoverUnary(log), LoggingUnary(log)),
		grpc.ChainStreamInterceptor(LoggingStream(log)),
	}
	if opts.TLSCert != "" && opts.TLSKey != "" {
		creds, err := credentials.NewServerTLSFromFile(opts.TLSCert, opts.TLSKey)
		if err != nil {
			return nil, err
		}
		sopts = append(sopts, grpc.Creds(creds))
	}

	s := &Server{srv: grpc.NewServer(sopts...), health: health.NewServer(), log: log}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s.srv, s.health)
	if opts.Reflection {
		reflection.Register(s.srv)
	}
	return s, nil
}

// Check pings the backend once and publishes the result.
func (s *Server) Check(ctx context.Context, p Pinger) {
	st := healthpb.HealthCheckResponse_SERVING
	if err := p.Ping(ctx); err != nil {
		s.log.Warn("storage ping failed", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
}

// Watch runs Check every interval until ctx is done.
func (s *Server) Watch(ctx context.Context, p Pinger, every time.Duration) {
	s.Check(ctx, p)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Check(ctx, p)
		}
	}
}

// Serve accepts connections on lis until Shutdown.
func (s *Server) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// Shutdown reports NOT_SERVING, then stops gracefully, forcing after timeout.
func (s *Server) Shutdown(timeout time.Duration) {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.srv.Stop()
	}
}
