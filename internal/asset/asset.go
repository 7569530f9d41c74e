// Package asset models SPL token metadata and raw on-chain amounts.
package asset

// Asset is the metadata of an SPL token. The mint address is its identity;
// the symbol is display metadata only.
type Asset struct {
	mint     string
	symbol   string
	name     string
	decimals uint8
}

// New creates an Asset.
func New(mint, symbol, name string, decimals uint8) *Asset {
	if mint == "" {
		panic("asset: empty mint")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}
	return &Asset{mint: mint, symbol: symbol, name: name, decimals: decimals}
}

// Mint returns the token mint address.
func (a *Asset) Mint() string {
	return a.mint
}

// Symbol returns the ticker symbol (e.g., "SOL", "USDC").
func (a *Asset) Symbol() string {
	if a.symbol == "" {
		return shortMint(a.mint)
	}
	return a.symbol
}

// Name returns the human-readable name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.Symbol()
	}
	return a.name
}

// Decimals returns the number of decimal places of the mint.
func (a *Asset) Decimals() uint8 {
	return a.decimals
}

func (a *Asset) String() string {
	return a.Symbol()
}

func shortMint(mint string) string {
	if len(mint) <= 8 {
		return mint
	}
	return mint[:4] + ".." + mint[len(mint)-4:]
}
