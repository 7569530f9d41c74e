// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/swap-router/business/blockchain/app"
	"github.com/fd1az/swap-router/business/blockchain/infra/solana"
	"github.com/fd1az/swap-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Service = di.NewToken[*app.Service]("blockchain.Service")
)

// Private dependency tokens - internal to blockchain module
var (
	RPC     = di.NewToken[*solana.RPCClient]("blockchain:rpc")
	Watcher = di.NewToken[*solana.Watcher]("blockchain:watcher")
)

func GetService(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, Service)
}

func GetRPC(c di.ServiceRegistry) *solana.RPCClient {
	return di.GetToken(c, RPC)
}

func GetWatcher(c di.ServiceRegistry) *solana.Watcher {
	return di.GetToken(c, Watcher)
}
