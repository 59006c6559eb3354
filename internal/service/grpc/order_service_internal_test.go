package grpcsvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

func TestToStatus(t *testing.T) {
	logger := log.New()
	logger.SetOutput(io.Discard)
	svc := &OrderService{logger: logger.WithField("component", "test")}

	tests := []struct {
		name    string
		err     error
		want    codes.Code
		message string
	}{
		{name: "order not found", err: domain.ErrOrderNotFound, want: codes.NotFound},
		{name: "cart not found", err: fmt.Errorf("load cart: %w", domain.ErrCartNotFound), want: codes.NotFound},
		{name: "missing user id", err: domain.ErrUserIDRequired, want: codes.InvalidArgument},
		{name: "missing order id", err: domain.ErrOrderIDRequired, want: codes.InvalidArgument},
		{name: "empty cart", err: domain.ErrEmptyCart, want: codes.FailedPrecondition},
		{name: "invalid items", err: domain.ErrInvalidLineItems, want: codes.FailedPrecondition},
		{name: "integrity", err: domain.ErrOrderUserMissing, want: codes.Internal, message: "internal error"},
		{name: "storage failure", err: errors.New("db down"), want: codes.Internal, message: "internal error"},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: codes.DeadlineExceeded},
		{name: "canceled", err: context.Canceled, want: codes.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := status.Convert(svc.toStatus(tt.err, "test"))
			if st.Code() != tt.want {
				t.Fatalf("expected code %s, got %s", tt.want, st.Code())
			}
			if tt.message != "" && st.Message() != tt.message {
				t.Fatalf("expected message %q, got %q", tt.message, st.Message())
			}
		})
	}
}
