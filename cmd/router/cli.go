package main

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	aggregatorApp "github.com/fd1az/swap-router/business/aggregator/app"
	blockchainDomain "github.com/fd1az/swap-router/business/blockchain/domain"
	marketDI "github.com/fd1az/swap-router/business/market/di"
	pricing "github.com/fd1az/swap-router/business/pricing/domain"
	venue "github.com/fd1az/swap-router/business/venue/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/monolith"
	"github.com/fd1az/swap-router/pkg/ui/theme"
)

// decimalsFn resolves a mint's decimals from the token cache.
type decimalsFn func(ctx context.Context, mint string) (uint8, bool)

func tokenDecimals(mono monolith.Monolith) decimalsFn {
	repo := marketDI.GetRepository(mono.Services())
	return repo.Decimals
}

// cli runs one non-interactive command against the aggregator.
type cli struct {
	agg    *aggregatorApp.Aggregator
	tokens decimalsFn
	out    io.Writer
}

var headerStyle = theme.Heading.Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func (c *cli) run(ctx context.Context, opts options) error {
	switch opts.mode {
	case "quote":
		req, err := c.request(ctx, opts)
		if err != nil {
			return err
		}
		q, err := c.agg.GetBestQuote(ctx, req)
		if err != nil {
			return err
		}
		c.printQuotes(ctx, req, map[venue.Venue]*venue.Quote{q.Venue: q}, q.Venue)
		return nil

	case "quotes":
		req, err := c.request(ctx, opts)
		if err != nil {
			return err
		}
		quotes, err := c.agg.GetAllQuotes(ctx, req)
		if err != nil {
			return err
		}
		c.printQuotes(ctx, req, quotes, c.agg.BestOf(quotes))
		return nil

	case "execute":
		req, err := c.request(ctx, opts)
		if err != nil {
			return err
		}
		res, err := c.agg.ExecuteBestSwap(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "venue:       %s\nsignature:   %s\nstatus:      %s\ninput:       %s\nexpected:    %s\n",
			res.Venue, res.TransactionID, res.Status,
			c.labelled(ctx, req.InputAsset, res.InputAmount),
			c.labelled(ctx, req.OutputAsset, res.OutputAmount))
		return nil

	case "price":
		mint := resolveMint(opts.in)
		price, err := c.agg.GetAssetPrice(ctx, mint)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s  $%s\n", opts.in, price.StringFixed(6))
		return nil

	case "discover":
		v, err := venue.Parse(opts.venue)
		if err != nil {
			return err
		}
		pools, err := c.agg.DiscoverPools(ctx, v, resolveMint(opts.in))
		if err != nil {
			return err
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("POOL", "BASE", "QUOTE", "LIQUIDITY (USD)").
			StyleFunc(styleCell)
		for _, p := range pools {
			t.Row(p.Address, p.BaseAsset, p.QuoteAsset, p.LiquidityOrZero().StringFixed(2))
		}
		fmt.Fprintln(c.out, t.Render())
		fmt.Fprintf(c.out, "%d pools on %s\n", len(pools), v)
		return nil
	}

	return apperror.New(apperror.CodeValidationError,
		apperror.WithMessage("unknown mode "+opts.mode))
}

func styleCell(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerStyle
	}
	return cellStyle
}

// request builds a SwapRequest from the flags.
func (c *cli) request(ctx context.Context, opts options) (venue.SwapRequest, error) {
	if opts.slippage > pricing.BpsDenominator {
		return venue.SwapRequest{}, apperror.New(apperror.CodeValidationError,
			apperror.WithMessage(fmt.Sprintf("slippage %d bps is above %d", opts.slippage, pricing.BpsDenominator)))
	}

	req := venue.SwapRequest{
		InputAsset:  resolveMint(opts.in),
		OutputAsset: resolveMint(opts.out),
		SlippageBps: uint32(opts.slippage),
	}

	if opts.venue != "" {
		v, err := venue.Parse(opts.venue)
		if err != nil {
			return req, err
		}
		req.VenueHint = v
	}

	amount, err := decimal.NewFromString(opts.amount)
	if err != nil {
		return req, apperror.New(apperror.CodeInvalidAmount, apperror.WithCause(err))
	}
	if opts.raw {
		req.Amount = amount.Truncate(0).BigInt()
		return req, nil
	}

	decimals, ok := c.tokens(ctx, req.InputAsset)
	if !ok {
		return req, apperror.New(apperror.CodeValidationError,
			apperror.WithMessage("unknown decimals for "+opts.in+", pass -raw with a smallest-unit amount"))
	}
	raw, err := asset.ToRaw(amount, decimals)
	if err != nil {
		return req, apperror.New(apperror.CodeInvalidAmount, apperror.WithCause(err))
	}
	req.Amount = raw
	return req, nil
}

func (c *cli) printQuotes(ctx context.Context, req venue.SwapRequest, quotes map[venue.Venue]*venue.Quote, best venue.Venue) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("VENUE", "OUTPUT", "FEE", "IMPACT", "VS BEST", "").
		StyleFunc(styleCell)

	for _, v := range c.agg.Venues() {
		q, ok := quotes[v]
		if !ok {
			continue
		}
		if q == nil {
			t.Row(v.String(), "-", "-", "-", "-", "no quote")
			continue
		}
		mark := ""
		if v == best {
			mark = "best"
		}
		spread := "-"
		if bq := quotes[best]; bq != nil {
			spread = pricing.QuoteSpread(bq.OutputAmount, q.OutputAmount).BasisPoints.StringFixed(1) + " bps"
		}
		t.Row(v.String(),
			c.human(ctx, req.OutputAsset, q.OutputAmount),
			c.human(ctx, req.OutputAsset, q.Fee),
			q.PriceImpact.Shift(2).StringFixed(2)+"%",
			spread,
			mark)
	}

	fmt.Fprintln(c.out, t.Render())
	if q := quotes[best]; q != nil {
		minOut, err := q.MinimumOutput(req.SlippageBps)
		if err == nil {
			fmt.Fprintf(c.out, "minimum received at %d bps slippage: %s\n", req.SlippageBps, c.labelled(ctx, req.OutputAsset, minOut))
		}
	}
}

// human renders raw in token units when the mint's decimals are known.
func (c *cli) human(ctx context.Context, mint string, raw *big.Int) string {
	if raw == nil {
		return "-"
	}
	if d, ok := c.tokens(ctx, mint); ok {
		return asset.ToDecimal(raw, d).String()
	}
	return raw.String()
}

// labelled is human with the symbol appended for well-known mints.
func (c *cli) labelled(ctx context.Context, mint string, raw *big.Int) string {
	if a, ok := asset.Lookup(mint); ok && raw != nil {
		return a.Format(raw)
	}
	return c.human(ctx, mint, raw)
}

// resolveMint maps a well-known symbol to its mint; anything else is taken
// as a mint address.
func resolveMint(symbolOrMint string) string {
	if a, ok := asset.Lookup(symbolOrMint); ok {
		return a.Mint()
	}
	return symbolOrMint
}

func runKeygen(w io.Writer) error {
	kp, err := blockchainDomain.GenerateKeypair()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "public key: %s\nsecret key: %s\n", kp.PublicKey(), kp.SecretKey())
	return nil
}
