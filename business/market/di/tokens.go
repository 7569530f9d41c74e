// Package di contains dependency injection tokens for the market context.
package di

import (
	"github.com/fd1az/swap-router/business/market/app"
	"github.com/fd1az/swap-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Repository = di.NewToken[*app.Repository]("market.Repository")
)

// Private dependency tokens - internal to market module
var (
	Store = di.NewToken[app.Store]("market:store")
)

func GetRepository(c di.ServiceRegistry) *app.Repository {
	return di.GetToken(c, Repository)
}

func GetStore(c di.ServiceRegistry) app.Store {
	return di.GetToken(c, Store)
}
