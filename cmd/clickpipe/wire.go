//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"clickpipe/internal/biz"
	"clickpipe/internal/conf"
	"clickpipe/internal/data"
	"clickpipe/internal/infra/eventbus"
	"clickpipe/internal/server"
	"clickpipe/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Link, *conf.Channel, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		server.ProviderSet,
		data.ProviderSet,
		biz.ProviderSet,
		service.ProviderSet,
		eventbus.PublisherSet,
		wire.Bind(new(service.ReadinessChecker), new(*data.Data)),
		newApp,
	))
}
