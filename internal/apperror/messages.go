package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeNetworkError:         "Network error",
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",
	CodeMaxRetriesExceeded:   "Maximum retry attempts exceeded",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	CodeInvalidReserves: "Pool reserves cannot support this swap",
	CodeInvalidAmount:   "Swap amount must be positive",

	CodeInvalidAddress: "Invalid asset or pool address",
	CodeInvalidPrice:   "Price must not be negative",
	CodePoolNotFound:   "Pool not found",
	CodeTokenNotFound:  "Token not found",

	CodeVenueQuoteError:     "Venue failed to quote the swap",
	CodeVenueExecutionError: "Venue failed to execute the swap",
	CodeVenueNotRegistered:  "Venue is not registered",
	CodeVenueDisabled:       "Venue is disabled",
	CodePriceUnavailable:    "Asset price unavailable",
	CodePoolDiscoveryFailed: "Pool discovery failed",

	CodeAggregationNoQuotes: "No venue returned a quote",

	CodeSolanaRPCError:     "Solana RPC call failed",
	CodeTransactionInvalid: "Transaction payload is invalid",
	CodeSigningFailed:      "Failed to sign transaction",
	CodeInvalidKey:         "Invalid wallet key",
	CodeConfirmationFailed: "Transaction confirmation failed",

	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	CodeCircuitOpen: "Circuit breaker is open",
}
