package stt

import (
	"fmt"
)

// FileReadError is returned when the input audio file cannot be read
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("failed to read audio file '%s': %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// PayloadBuildError is returned when the request body cannot be assembled
type PayloadBuildError struct {
	Err error
}

func (e *PayloadBuildError) Error() string {
	return fmt.Sprintf("failed to build speech payload: %v", e.Err)
}

func (e *PayloadBuildError) Unwrap() error { return e.Err }

// CredentialError is returned when the key is unusable or the token exchange fails
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("failed to acquire access token: %v", e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// TransportError is returned when the HTTPS call itself fails
// (DNS, connection refused, TLS, timeout)
type TransportError struct {
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("request to Google Speech-to-Text timed out: %v", e.Err)
	}
	return fmt.Sprintf("failed to send request to Google Speech-to-Text: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is returned when the service answers with a non-2xx status
type RemoteError struct {
	StatusCode int
	Status     string
	Body       string
	API        *APIError // nil when the body is not a Google error object
}

func (e *RemoteError) Error() string {
	if e.API != nil && e.API.Message != "" {
		return fmt.Sprintf("Google Speech-to-Text API error (status %d, %s): %s", e.StatusCode, e.API.Status, e.API.Message)
	}
	return fmt.Sprintf("Google Speech-to-Text API returned status %d: %s", e.StatusCode, e.Body)
}

// DecodeError is returned when the response body is not valid JSON within the byte budget.
// It is reported to the user but does not abort the pipeline.
type DecodeError struct {
	BudgetExceeded bool
	Err            error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode speech response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
