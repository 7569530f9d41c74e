// Package di contains dependency injection tokens for the aggregator context.
package di

import (
	"github.com/fd1az/swap-router/business/aggregator/app"
	"github.com/fd1az/swap-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Aggregator = di.NewToken[*app.Aggregator]("aggregator.Aggregator")
)

// Private dependency tokens - internal to aggregator module
var (
	Registry     = di.NewToken[*app.Registry]("aggregator:registry")
	VenueConfigs = di.NewToken[*app.VenueConfigs]("aggregator:venueConfigs")
	ErrorHandler = di.NewToken[*app.ErrorHandler]("aggregator:errorHandler")
)

func GetAggregator(c di.ServiceRegistry) *app.Aggregator {
	return di.GetToken(c, Aggregator)
}

func GetRegistry(c di.ServiceRegistry) *app.Registry {
	return di.GetToken(c, Registry)
}

func GetVenueConfigs(c di.ServiceRegistry) *app.VenueConfigs {
	return di.GetToken(c, VenueConfigs)
}

func GetErrorHandler(c di.ServiceRegistry) *app.ErrorHandler {
	return di.GetToken(c, ErrorHandler)
}
