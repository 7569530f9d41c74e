package asset

// Well-known mainnet mints.
const (
	MintWrappedSOL = "So11111111111111111111111111111111111111112"
	MintUSDC       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	MintUSDT       = "Es9vMFrzaCERmJfrF4H2FYD1KQNqYjTGtpJKaBvPUt1R"
)

var (
	SOL  = New(MintWrappedSOL, "SOL", "Wrapped SOL", 9)
	USDC = New(MintUSDC, "USDC", "USD Coin", 6)
	USDT = New(MintUSDT, "USDT", "Tether USD", 6)
)

// WellKnown lists the assets seeded into the token repository at startup.
func WellKnown() []*Asset {
	return []*Asset{SOL, USDC, USDT}
}

// Lookup resolves a symbol (case-sensitive) or mint among the well-known assets.
func Lookup(symbolOrMint string) (*Asset, bool) {
	for _, a := range WellKnown() {
		if a.symbol == symbolOrMint || a.mint == symbolOrMint {
			return a, true
		}
	}
	return nil, false
}
