package jupiter

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/httpclient"
)

const (
	DefaultBaseURL = "https://lite-api.jup.ag"

	quoteEndpoint = "/swap/v1/quote"
	swapEndpoint  = "/swap/v1/swap"
	priceEndpoint = "/price/v3"

	httpTimeout = 10 * time.Second
)

// quoteResponse holds the fields read from /swap/v1/quote. The full body is
// kept separately because /swap/v1/swap expects it verbatim.
type quoteResponse struct {
	InputMint      string           `json:"inputMint"`
	InAmount       string           `json:"inAmount"`
	OutputMint     string           `json:"outputMint"`
	OutAmount      string           `json:"outAmount"`
	PriceImpactPct *decimal.Decimal `json:"priceImpactPct"`
	PlatformFee    *struct {
		Amount string `json:"amount"`
		FeeBps int    `json:"feeBps"`
	} `json:"platformFee"`
}

type swapRequest struct {
	QuoteResponse    json.RawMessage `json:"quoteResponse"`
	UserPublicKey    string          `json:"userPublicKey"`
	WrapAndUnwrapSol bool            `json:"wrapAndUnwrapSol"`
}

type swapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

type priceEntry struct {
	USDPrice *decimal.Decimal `json:"usdPrice"`
}

// client wraps the Jupiter REST API.
type client struct {
	http httpclient.Client
}

func newClient(baseURL, apiKey string) (*client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c, err := httpclient.New(
		httpclient.WithName("jupiter"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithTimeout(httpTimeout),
		httpclient.WithHeader("x-api-key", apiKey),
	)
	if err != nil {
		return nil, err
	}
	return &client{http: c}, nil
}

func (c *client) request(endpoint string) httpclient.Request {
	return c.http.NewRequest(httpclient.WithEndpoint(endpoint))
}

// quote returns the parsed quote and its raw body.
func (c *client) quote(ctx context.Context, inputMint, outputMint, amount string, slippageBps uint32) (*quoteResponse, json.RawMessage, error) {
	var result quoteResponse
	resp, err := c.request("quote").
		SetQueryParam("inputMint", inputMint).
		SetQueryParam("outputMint", outputMint).
		SetQueryParam("amount", amount).
		SetQueryParam("slippageBps", strconv.FormatUint(uint64(slippageBps), 10)).
		SetResult(&result).
		Get(ctx, quoteEndpoint)
	if err != nil {
		return nil, nil, err
	}
	if resp.Result() == nil {
		return nil, nil, apperror.New(apperror.CodeVenueQuoteError,
			apperror.WithContext("jupiter: unreadable quote response"))
	}
	return &result, json.RawMessage(resp.Body()), nil
}

func (c *client) swap(ctx context.Context, quote json.RawMessage, userPublicKey string) (*swapResponse, error) {
	var result swapResponse
	_, err := c.request("swap").
		SetBody(swapRequest{
			QuoteResponse:    quote,
			UserPublicKey:    userPublicKey,
			WrapAndUnwrapSol: true,
		}).
		SetResult(&result).
		Post(ctx, swapEndpoint)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *client) price(ctx context.Context, mint string) (*decimal.Decimal, error) {
	result := map[string]priceEntry{}
	_, err := c.request("price").
		SetQueryParam("ids", mint).
		SetResult(&result).
		Get(ctx, priceEndpoint)
	if err != nil {
		return nil, err
	}
	entry, ok := result[mint]
	if !ok || entry.USDPrice == nil {
		return nil, nil
	}
	return entry.USDPrice, nil
}
