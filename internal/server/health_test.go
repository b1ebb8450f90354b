package server

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func check(t *testing.T, h *Health, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := h.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

// status is safe to call from Eventually's goroutine; unknown services read as SERVICE_UNKNOWN.
func status(h *Health, service string) healthpb.HealthCheckResponse_ServingStatus {
	resp, err := h.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_SERVICE_UNKNOWN
	}
	return resp.GetStatus()
}

func TestHealth_OverallFollowsComponents(t *testing.T) {
	h := NewHealth(nil)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, h, ""))

	h.Set(ServiceStore, true)
	h.Set(ServiceQueue, true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, h, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, h, ServiceStore))

	h.Set(ServiceStore, false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, h, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, h, ServiceQueue))
}

func TestHealth_Watch(t *testing.T) {
	h := NewHealth(nil)
	ctx, cancel := context.WithCancel(context.Background())
	fail := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Watch(ctx, ServiceStore, 10*time.Millisecond, func(context.Context) error {
			select {
			case <-fail:
				return errors.New("ping failed")
			default:
				return nil
			}
		})
	}()

	require.Eventually(t, func() bool {
		return status(h, ServiceStore) == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)
	close(fail)
	require.Eventually(t, func() bool {
		return status(h, ServiceStore) == healthpb.HealthCheckResponse_NOT_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestServe_AnswersHealthChecks(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	h := NewHealth(nil)
	h.Set(ServiceQueue, true)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx, lis, h, nil) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	cctx, ccancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer ccancel()
	resp, err := healthpb.NewHealthClient(conn).Check(cctx, &healthpb.HealthCheckRequest{}, grpc.WaitForReady(true))
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	cancel()
	assert.NoError(t, <-errCh)
}
