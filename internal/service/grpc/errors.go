package grpcsvc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

func isMissingID(err error) bool {
	return errors.Is(err, domain.ErrUserIDRequired) || errors.Is(err, domain.ErrOrderIDRequired)
}

func contextCode(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.OK
	}
}
