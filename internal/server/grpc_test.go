package server

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	gstatus "google.golang.org/grpc/status"

	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

func TestStatusInterceptor(t *testing.T) {
	intercept := statusInterceptor(slog.Default())
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	call := func(err error) error {
		_, got := intercept(context.Background(), nil, info, func(context.Context, any) (any, error) {
			return nil, err
		})
		return got
	}

	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"validation", common.NewAppError("VALIDATION_ERROR", "currency", common.ErrValidation), codes.InvalidArgument},
		{"wrapped not found", fmt.Errorf("%w: rule EUR_FR_Hotel1", common.ErrNotFound), codes.NotFound},
		{"unavailable", fmt.Errorf("%w: ocr", common.ErrUnavailable), codes.Unavailable},
		{"unsupported", fmt.Errorf("%w: .tiff", common.ErrUnsupported), codes.Unimplemented},
		{"database", fmt.Errorf("%w: locked", common.ErrDatabase), codes.Internal},
		{"existing status", gstatus.Error(codes.NotFound, "unknown service"), codes.NotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, gstatus.Code(call(tc.err)))
		})
	}

	assert.NoError(t, call(nil))
}
