//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"clickpipe/internal/analytics/enrichment"
	"clickpipe/internal/conf"
	"clickpipe/internal/data"
	"clickpipe/internal/infra/eventbus"
	"clickpipe/internal/server"
	"clickpipe/internal/worker"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init the click worker.
func wireApp(*conf.Data, *conf.Channel, *conf.Worker, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		server.ConsumerProviderSet,
		data.ProviderSet,
		enrichment.ProviderSet,
		worker.ProviderSet,
		eventbus.ConsumerSet,
		newApp,
	))
}
