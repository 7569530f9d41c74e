// Package shyft queries Shyft's GraphQL account indexer, which exposes
// decoded on-chain program accounts such as AMM pools.
package shyft

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/circuitbreaker"
	"github.com/fd1az/swap-router/internal/httpclient"
)

const (
	DefaultURL     = "https://programs.shyft.to/v0/graphql/accounts"
	DefaultNetwork = "mainnet-beta"

	httpTimeout = 15 * time.Second
)

// Config configures the GraphQL client.
type Config struct {
	URL     string
	APIKey  string
	Network string
}

type graphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// Client posts GraphQL operations to the accounts endpoint.
type Client struct {
	http    httpclient.Client
	url     string
	apiKey  string
	network string
	cb      *circuitbreaker.CircuitBreaker[*graphQLResponse]
}

// NewClient creates a Shyft client.
func NewClient(cfg Config) (*Client, error) {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	network := cfg.Network
	if network == "" {
		network = DefaultNetwork
	}

	c, err := httpclient.New(
		httpclient.WithName("shyft"),
		httpclient.WithTimeout(httpTimeout),
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:    c,
		url:     url,
		apiKey:  cfg.APIKey,
		network: network,
		cb:      circuitbreaker.New[*graphQLResponse](circuitbreaker.DefaultConfig("shyft")),
	}, nil
}

// Query runs operation and decodes its data into out. GraphQL errors are
// returned as EXTERNAL_SERVICE_ERROR.
func (c *Client) Query(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	if c.apiKey == "" {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithMessage("shyft api key is not configured"))
	}

	resp, err := c.cb.Execute(func() (*graphQLResponse, error) {
		var result graphQLResponse
		_, err := c.http.NewRequest(httpclient.WithEndpoint(operation)).
			SetQueryParam("api_key", c.apiKey).
			SetQueryParam("network", c.network).
			SetBody(graphQLRequest{Query: query, Variables: variables, OperationName: operation}).
			SetResult(&result).
			Post(ctx, c.url)
		if err != nil {
			return nil, err
		}
		return &result, nil
	})
	if err != nil {
		return err
	}

	if len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return apperror.New(apperror.CodeExternalServiceError,
			apperror.WithContext("shyft "+operation+": "+strings.Join(msgs, "; ")))
	}
	if len(resp.Data) == 0 {
		return apperror.New(apperror.CodeExternalServiceError,
			apperror.WithContext("shyft "+operation+": empty response"))
	}

	if err := json.Unmarshal(resp.Data, out); err != nil {
		return apperror.New(apperror.CodeExternalServiceError,
			apperror.WithCause(err),
			apperror.WithContext("shyft "+operation+": unexpected data shape"))
	}
	return nil
}
