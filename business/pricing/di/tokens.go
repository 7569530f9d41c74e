// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/swap-router/business/pricing/app"
	"github.com/fd1az/swap-router/internal/di"
)

var (
	PriceService = di.NewToken[*app.PriceService]("pricing.PriceService")
)

func GetPriceService(c di.ServiceRegistry) *app.PriceService {
	return di.GetToken(c, PriceService)
}
