package raydium

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/httpclient"
)

const (
	DefaultAPIURL = "https://api-v3.raydium.io"
	DefaultTxURL  = "https://transaction-v1.raydium.io"

	computeEndpoint     = "/compute/swap-base-in"
	transactionEndpoint = "/transaction/swap-base-in"
	poolKeysEndpoint    = "/pools/key/ids"
	poolsByMintEndpoint = "/pools/info/mint"
	mintPriceEndpoint   = "/mint/price"

	txVersion               = "V0"
	defaultComputeUnitPrice = "100000"
	discoveryPageSize       = 100

	httpTimeout = 10 * time.Second
)

// envelope is the common {success,msg,data} response shape.
type envelope[T any] struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Data    T      `json:"data"`
}

type computeData struct {
	SwapType             string           `json:"swapType"`
	InputMint            string           `json:"inputMint"`
	InputAmount          string           `json:"inputAmount"`
	OutputMint           string           `json:"outputMint"`
	OutputAmount         string           `json:"outputAmount"`
	OtherAmountThreshold string           `json:"otherAmountThreshold"`
	SlippageBps          int              `json:"slippageBps"`
	PriceImpactPct       *decimal.Decimal `json:"priceImpactPct"` // percent
	RoutePlan            []routeHop       `json:"routePlan"`
}

type routeHop struct {
	PoolID     string `json:"poolId"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	FeeMint    string `json:"feeMint"`
	FeeRate    int    `json:"feeRate"`
	FeeAmount  string `json:"feeAmount"`
}

type transactionRequest struct {
	ComputeUnitPriceMicroLamports string          `json:"computeUnitPriceMicroLamports"`
	SwapResponse                  json.RawMessage `json:"swapResponse"`
	TxVersion                     string          `json:"txVersion"`
	Wallet                        string          `json:"wallet"`
	WrapSol                       bool            `json:"wrapSol"`
	UnwrapSol                     bool            `json:"unwrapSol"`
}

type transactionData struct {
	Transaction string `json:"transaction"`
}

type mintInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

// poolKeys is the subset of /pools/key/ids used to check route pools.
type poolKeys struct {
	ID        string   `json:"id"`
	ProgramID string   `json:"programId"`
	MintA     mintInfo `json:"mintA"`
	MintB     mintInfo `json:"mintB"`
	Vault     struct {
		A string `json:"A"`
		B string `json:"B"`
	} `json:"vault"`
}

// trades reports whether the pool's two mints are exactly in and out.
func (k poolKeys) trades(in, out string) bool {
	a, b := k.MintA.Address, k.MintB.Address
	return (a == in && b == out) || (a == out && b == in)
}

type poolInfo struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	MintA       mintInfo         `json:"mintA"`
	MintB       mintInfo         `json:"mintB"`
	MintAmountA decimal.Decimal  `json:"mintAmountA"`
	MintAmountB decimal.Decimal  `json:"mintAmountB"`
	TVL         *decimal.Decimal `json:"tvl"`
	FeeRate     decimal.Decimal  `json:"feeRate"`
}

type poolPage struct {
	Count int        `json:"count"`
	Data  []poolInfo `json:"data"`
}

// client wraps the Raydium v3 API and transaction API.
type client struct {
	api httpclient.Client
	tx  httpclient.Client
}

func newClient(apiURL, txURL string) (*client, error) {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if txURL == "" {
		txURL = DefaultTxURL
	}

	api, err := httpclient.New(
		httpclient.WithName("raydium"),
		httpclient.WithBaseURL(apiURL),
		httpclient.WithTimeout(httpTimeout),
	)
	if err != nil {
		return nil, err
	}
	tx, err := httpclient.New(
		httpclient.WithName("raydium-tx"),
		httpclient.WithBaseURL(txURL),
		httpclient.WithTimeout(httpTimeout),
	)
	if err != nil {
		return nil, err
	}
	return &client{api: api, tx: tx}, nil
}

func label(endpoint string) httpclient.RequestOption {
	return httpclient.WithEndpoint(endpoint)
}

// failed turns success=false into an error carrying msg.
func failed(code apperror.Code, msg string) error {
	if msg == "" {
		msg = "request unsuccessful"
	}
	return apperror.New(code, apperror.WithContext("raydium: "+msg))
}

// compute returns the parsed swap computation and the raw body.
func (c *client) compute(ctx context.Context, inputMint, outputMint, amount string, slippageBps uint32) (*computeData, json.RawMessage, error) {
	var result envelope[computeData]
	resp, err := c.tx.NewRequest(label("compute")).
		SetQueryParam("inputMint", inputMint).
		SetQueryParam("outputMint", outputMint).
		SetQueryParam("amount", amount).
		SetQueryParam("slippageBps", strconv.FormatUint(uint64(slippageBps), 10)).
		SetQueryParam("txVersion", txVersion).
		SetResult(&result).
		Get(ctx, computeEndpoint)
	if err != nil {
		return nil, nil, err
	}
	if resp.Result() == nil {
		return nil, nil, failed(apperror.CodeVenueQuoteError, "unreadable compute response")
	}
	if !result.Success {
		return nil, nil, failed(apperror.CodeVenueQuoteError, result.Msg)
	}
	return &result.Data, json.RawMessage(resp.Body()), nil
}

func (c *client) buildTransactions(ctx context.Context, req transactionRequest) ([]transactionData, error) {
	var result envelope[[]transactionData]
	resp, err := c.tx.NewRequest(label("transaction")).
		SetBody(req).
		SetResult(&result).
		Post(ctx, transactionEndpoint)
	if err != nil {
		return nil, err
	}
	if resp.Result() == nil || !result.Success {
		return nil, failed(apperror.CodeVenueExecutionError, result.Msg)
	}
	return result.Data, nil
}

func (c *client) poolKeys(ctx context.Context, ids []string) ([]poolKeys, error) {
	var result envelope[[]*poolKeys]
	_, err := c.api.NewRequest(label("pool_keys")).
		SetQueryParam("ids", strings.Join(ids, ",")).
		SetResult(&result).
		Get(ctx, poolKeysEndpoint)
	if err != nil {
		return nil, err
	}
	keys := make([]poolKeys, 0, len(result.Data))
	for _, k := range result.Data {
		// unknown ids come back as null entries
		if k != nil {
			keys = append(keys, *k)
		}
	}
	return keys, nil
}

func (c *client) poolsByMint(ctx context.Context, mint string) ([]poolInfo, error) {
	var result envelope[poolPage]
	resp, err := c.api.NewRequest(label("pools_by_mint")).
		SetQueryParam("mint1", mint).
		SetQueryParam("poolType", "all").
		SetQueryParam("poolSortField", "liquidity").
		SetQueryParam("sortType", "desc").
		SetQueryParam("pageSize", strconv.Itoa(discoveryPageSize)).
		SetQueryParam("page", "1").
		SetResult(&result).
		Get(ctx, poolsByMintEndpoint)
	if err != nil {
		return nil, err
	}
	if resp.Result() == nil || !result.Success {
		return nil, failed(apperror.CodePoolDiscoveryFailed, result.Msg)
	}
	return result.Data.Data, nil
}

func (c *client) mintPrice(ctx context.Context, mint string) (*decimal.Decimal, error) {
	var result envelope[map[string]decimal.Decimal]
	_, err := c.api.NewRequest(label("mint_price")).
		SetQueryParam("mints", mint).
		SetResult(&result).
		Get(ctx, mintPriceEndpoint)
	if err != nil {
		return nil, err
	}
	p, ok := result.Data[mint]
	if !result.Success || !ok || !p.IsPositive() {
		return nil, nil
	}
	return &p, nil
}
