package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Component names reported on the health service.
const (
	ServiceStore = "ticket.store"
	ServiceQueue = "ticket.queue"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// Health tracks per-component serving status. The overall status ("") is
// SERVING only while every registered check passes.
type Health struct {
	hs     *health.Server
	logger *slog.Logger

	mu     sync.Mutex
	status map[string]bool
}

func NewHealth(logger *slog.Logger) *Health {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Health{hs: health.NewServer(), logger: logger, status: map[string]bool{}}
	h.hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Server is the grpc_health_v1 implementation to register.
func (h *Health) Server() healthpb.HealthServer { return h.hs }

// Set records a component's status and recomputes the overall one.
func (h *Health) Set(service string, serving bool) {
	h.mu.Lock()
	prev, known := h.status[service]
	h.status[service] = serving
	overall := true
	for _, ok := range h.status {
		overall = overall && ok
	}
	h.mu.Unlock()

	h.hs.SetServingStatus(service, servingStatus(serving))
	h.hs.SetServingStatus("", servingStatus(overall))
	if !known || prev != serving {
		h.logger.Info("health.status.changed", "service", service, "serving", serving)
	}
}

// Watch runs check every interval until ctx is done.
func (h *Health) Watch(ctx context.Context, service string, interval time.Duration, check Check) {
	run := func() {
		cctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		err := check(cctx)
		if err != nil && ctx.Err() == nil {
			h.logger.Warn("health.check.failed", "service", service, "err", err)
		}
		h.Set(service, err == nil)
	}
	run()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}

// Shutdown flips every service to NOT_SERVING.
func (h *Health) Shutdown() { h.hs.Shutdown() }

func servingStatus(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
