package apperror

import "strconv"

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeNetworkError         Code = "NETWORK_ERROR"
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"
	CodeMaxRetriesExceeded   Code = "MAX_RETRIES_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Routing error codes
const (
	// Pricing model
	CodeInvalidReserves Code = "INVALID_RESERVES"
	CodeInvalidAmount   Code = "INVALID_AMOUNT"

	// Market data
	CodeInvalidAddress Code = "INVALID_ADDRESS"
	CodeInvalidPrice   Code = "INVALID_PRICE"
	CodePoolNotFound   Code = "POOL_NOT_FOUND"
	CodeTokenNotFound  Code = "TOKEN_NOT_FOUND"

	// Venues
	CodeVenueQuoteError     Code = "VENUE_QUOTE_ERROR"
	CodeVenueExecutionError Code = "VENUE_EXECUTION_ERROR"
	CodeVenueNotRegistered  Code = "VENUE_NOT_REGISTERED"
	CodeVenueDisabled       Code = "VENUE_DISABLED"
	CodePriceUnavailable    Code = "PRICE_UNAVAILABLE"
	CodePoolDiscoveryFailed Code = "POOL_DISCOVERY_FAILED"

	// Aggregation
	CodeAggregationNoQuotes Code = "AGGREGATION_NO_QUOTES"

	// Solana
	CodeSolanaRPCError     Code = "SOLANA_RPC_ERROR"
	CodeTransactionInvalid Code = "TRANSACTION_INVALID"
	CodeSigningFailed      Code = "SIGNING_FAILED"
	CodeInvalidKey         Code = "INVALID_KEY"
	CodeConfirmationFailed Code = "CONFIRMATION_FAILED"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)

// HTTPStatusCode returns the HTTP_<status> code used for untyped HTTP failures.
func HTTPStatusCode(status int) Code {
	return Code("HTTP_" + strconv.Itoa(status))
}
