//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/vertixec/THEARCHIVE/internal/config"
)

// InitializeContainer creates a fully wired client. The returned cleanup
// releases everything in reverse construction order.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
