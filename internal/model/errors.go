package model

import "fmt"

// Provider error codes follow the common wallet-provider convention:
// the 4xxx range for user-facing provider errors and the JSON-RPC 2.0
// range for protocol errors.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901
	CodeLimitExceeded     = -32005
	CodeInvalidRequest    = -32600
	CodeMethodNotFound    = -32601
	CodeInvalidParams     = -32602
	CodeInternal          = -32603
	CodeParse             = -32700
)

var defaultMessages = map[int]string{
	CodeUserRejected:      "user rejected the request",
	CodeUnauthorized:      "the requested method requires authorization",
	CodeUnsupportedMethod: "the requested method is not supported",
	CodeDisconnected:      "the provider is disconnected",
	CodeChainDisconnected: "the provider is disconnected from the requested chain",
	CodeLimitExceeded:     "request limit exceeded",
	CodeInvalidRequest:    "invalid request",
	CodeMethodNotFound:    "method not found",
	CodeInvalidParams:     "invalid parameters",
	CodeInternal:          "internal error",
	CodeParse:             "parse error",
}

// ProviderError is the error shape returned across the bridge.
type ProviderError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// NewProviderError builds a ProviderError, falling back to the default
// message for the code when message is empty.
func NewProviderError(code int, message string) *ProviderError {
	if message == "" {
		message = defaultMessages[code]
	}
	return &ProviderError{Code: code, Message: message}
}

// AsProviderError coerces any error into a ProviderError. Errors that
// already carry a code pass through unchanged; everything else becomes
// an internal error with the original message.
func AsProviderError(err error) *ProviderError {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*ProviderError); ok {
		return pe
	}
	return NewProviderError(CodeInternal, err.Error())
}
