package server

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

// Serve exposes the health service on addr until ctx is cancelled, then stops gracefully.
func Serve(ctx context.Context, addr string, h *Health, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return common.NewAppError("LISTEN_FAILED", "listen on "+addr, err)
	}
	return serve(ctx, lis, h, logger)
}

func serve(ctx context.Context, lis net.Listener, h *Health, logger *slog.Logger) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(statusInterceptor(logger)))
	healthpb.RegisterHealthServer(srv, h.Server())
	// reflection for grpcurl
	reflection.Register(srv)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("grpc.serve.start", "addr", lis.Addr().String())
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("grpc.serve.stopping")
		h.Shutdown()
		srv.GracefulStop()
		<-errCh
		return nil
	}
}

// statusInterceptor turns application errors into gRPC statuses so clients see
// InvalidArgument or Unavailable instead of Unknown.
func statusInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Debug("grpc.call.failed", "method", info.FullMethod, "err", err)
			return resp, common.ToStatus(err)
		}
		return resp, nil
	}
}
