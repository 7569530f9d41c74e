// Package di contains dependency injection tokens for the venue context.
package di

import (
	"github.com/fd1az/swap-router/business/venue/app"
	"github.com/fd1az/swap-router/business/venue/infra/shyft"
	"github.com/fd1az/swap-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	// Adapters holds one adapter per configured venue in enumeration order.
	Adapters = di.NewToken[[]app.Adapter]("venue.Adapters")
)

// Private dependency tokens - internal to venue module
var (
	Shyft = di.NewToken[*shyft.Client]("venue:shyft")
)

func GetAdapters(c di.ServiceRegistry) []app.Adapter {
	return di.GetToken(c, Adapters)
}

func GetShyft(c di.ServiceRegistry) *shyft.Client {
	return di.GetToken(c, Shyft)
}
