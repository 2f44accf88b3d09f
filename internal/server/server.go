package server

import "github.com/google/wire"

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHTTPServer)

// ConsumerProviderSet is the worker's server providers.
var ConsumerProviderSet = wire.NewSet(NewConsumerServer)
