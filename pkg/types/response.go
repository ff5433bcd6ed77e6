// Package types holds wire shapes shared by the API server and its Go
// client.
package types

// Envelope wraps every successful response body as {"data": ...}.
type Envelope[T any] struct {
	Data T `json:"data"`
}

type SuccessEnvelope = Envelope[any]

// ErrorEnvelope is the body of every non-2xx response.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
