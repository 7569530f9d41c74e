// Package solana implements the blockchain ports over Solana's JSON-RPC
// HTTP and WebSocket APIs.
package solana

import (
	"context"
	"encoding/json"
	"math/big"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/swap-router/business/blockchain/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/circuitbreaker"
	"github.com/fd1az/swap-router/internal/httpclient"
)

const (
	DefaultRPCURL = "https://api.mainnet-beta.solana.com"

	meterName   = "solana"
	httpTimeout = 20 * time.Second
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// withContext is the {context, value} envelope most read methods return.
type withContext[T any] struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value T `json:"value"`
}

type tokenAmount struct {
	Amount   string `json:"amount"`
	Decimals uint8  `json:"decimals"`
}

// RPCClient is a Solana JSON-RPC client.
type RPCClient struct {
	http       httpclient.Client
	url        string
	commitment domain.Commitment
	nextID     atomic.Int64
	cb         *circuitbreaker.CircuitBreaker[json.RawMessage]

	calls  metric.Int64Counter
	errors metric.Int64Counter
}

// NewRPCClient creates a client for url using commitment for reads and
// preflight.
func NewRPCClient(url string, commitment domain.Commitment) (*RPCClient, error) {
	if url == "" {
		url = DefaultRPCURL
	}
	if commitment == "" {
		commitment = domain.CommitmentConfirmed
	}

	c, err := httpclient.New(
		httpclient.WithName("solana-rpc"),
		httpclient.WithTimeout(httpTimeout),
	)
	if err != nil {
		return nil, err
	}

	r := &RPCClient{
		http:       c,
		url:        url,
		commitment: commitment,
		cb:         circuitbreaker.New[json.RawMessage](circuitbreaker.DefaultConfig("solana-rpc")),
	}
	if err := r.initMetrics(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RPCClient) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.calls, err = meter.Int64Counter(
		"solana_rpc_calls_total",
		metric.WithDescription("Total Solana RPC calls"),
	)
	if err != nil {
		return err
	}

	r.errors, err = meter.Int64Counter(
		"solana_rpc_errors_total",
		metric.WithDescription("Total failed Solana RPC calls"),
	)
	return err
}

// call posts one JSON-RPC request and decodes its result into out.
func (r *RPCClient) call(ctx context.Context, method string, out any, params ...any) error {
	attrs := metric.WithAttributes(attribute.String("method", method))
	r.calls.Add(ctx, 1, attrs)

	result, err := r.cb.Execute(func() (json.RawMessage, error) {
		var resp rpcResponse
		_, err := r.http.NewRequest(httpclient.WithEndpoint(method)).
			SetBody(rpcRequest{JSONRPC: "2.0", ID: r.nextID.Add(1), Method: method, Params: params}).
			SetResult(&resp).
			Post(ctx, r.url)
		if err != nil {
			return nil, err
		}
		if resp.Error != nil {
			return nil, apperror.New(apperror.CodeSolanaRPCError,
				apperror.WithMessage(resp.Error.Message),
				apperror.WithContext(method+" code "+strconv.Itoa(resp.Error.Code)))
		}
		return resp.Result, nil
	})
	if err != nil {
		r.errors.Add(ctx, 1, attrs)
		return apperror.Wrap(err, apperror.CodeSolanaRPCError, method)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		r.errors.Add(ctx, 1, attrs)
		return apperror.New(apperror.CodeSolanaRPCError,
			apperror.WithCause(err),
			apperror.WithContext(method+": unexpected result shape"))
	}
	return nil
}

// SendTransaction submits a signed base64 transaction and returns its
// signature.
func (r *RPCClient) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	var sig string
	err := r.call(ctx, "sendTransaction", &sig, txBase64, map[string]any{
		"encoding":            "base64",
		"preflightCommitment": r.commitment,
		"maxRetries":          2,
	})
	return sig, err
}

// SignatureStatuses returns one status per signature; unknown signatures are nil.
func (r *RPCClient) SignatureStatuses(ctx context.Context, signatures ...string) ([]*domain.SignatureStatus, error) {
	var out withContext[[]*domain.SignatureStatus]
	err := r.call(ctx, "getSignatureStatuses", &out, signatures, map[string]any{
		"searchTransactionHistory": false,
	})
	if err != nil {
		return nil, err
	}
	return out.Value, nil
}

// TokenAccountBalance returns an SPL token account's raw balance and mint
// decimals.
func (r *RPCClient) TokenAccountBalance(ctx context.Context, account string) (*big.Int, uint8, error) {
	var out withContext[tokenAmount]
	if err := r.call(ctx, "getTokenAccountBalance", &out, account, map[string]any{
		"commitment": r.commitment,
	}); err != nil {
		return nil, 0, err
	}

	amount, ok := new(big.Int).SetString(out.Value.Amount, 10)
	if !ok {
		return nil, 0, apperror.New(apperror.CodeSolanaRPCError,
			apperror.WithContext("getTokenAccountBalance: bad amount "+out.Value.Amount))
	}
	return amount, out.Value.Decimals, nil
}

func (r *RPCClient) LatestBlockhash(ctx context.Context) (*domain.Blockhash, error) {
	var out withContext[domain.Blockhash]
	if err := r.call(ctx, "getLatestBlockhash", &out, map[string]any{"commitment": r.commitment}); err != nil {
		return nil, err
	}
	return &out.Value, nil
}

// Health returns nil when the node reports "ok".
func (r *RPCClient) Health(ctx context.Context) error {
	var status string
	if err := r.call(ctx, "getHealth", &status); err != nil {
		return err
	}
	if status != "ok" {
		return apperror.New(apperror.CodeSolanaRPCError,
			apperror.WithContext("getHealth: "+status))
	}
	return nil
}
