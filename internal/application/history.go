package application

import (
	"context"

	"jarvis/internal/domain"
)

type History interface {
	Append(ctx context.Context, exchange domain.Exchange) error
	Recent(ctx context.Context, n int) ([]domain.Exchange, error)
}
