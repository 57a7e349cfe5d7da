package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// DefaultEndpoint is the v1 synchronous recognize method
const DefaultEndpoint = "https://speech.googleapis.com/v1/speech:recognize"

// Dispatcher issues the recognize POST. It performs no retries.
type Dispatcher struct {
	endpoint   string
	httpClient *http.Client
}

// NewDispatcher creates a dispatcher for the given endpoint.
// The timeout bounds the whole exchange, body streaming included.
func NewDispatcher(endpoint string, timeout time.Duration) *Dispatcher {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Dispatcher{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the URL requests are sent to
func (d *Dispatcher) Endpoint() string {
	return d.endpoint
}

// Dispatch sends the payload with the bearer token and returns the response
// without inspecting its status. The caller owns resp.Body.
func (d *Dispatcher) Dispatch(ctx context.Context, token *oauth2.Token, payload *Payload) (*http.Response, error) {
	if token == nil {
		return nil, &CredentialError{Err: errors.New("missing access token")}
	}

	reqJSON, err := payload.Encode()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	token.SetAuthHeader(req)

	log.Printf("[Google STT] Calling Google Speech-to-Text API at %s (%d bytes)...", d.endpoint, len(reqJSON))
	resp, err := d.httpClient.Do(req)
	if err != nil {
		log.Printf("[Google STT] HTTP error: %v", err)
		return nil, &TransportError{Timeout: isTimeout(err), Err: err}
	}

	log.Printf("[Google STT] Response received: %s", resp.Status)
	return resp, nil
}

// CheckStatus turns a non-2xx response into a RemoteError.
// At most budget bytes of the body are read.
func CheckStatus(resp *http.Response, budget int) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, int64(budget)))
	remoteErr := &RemoteError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		remoteErr.API = envelope.Error
		log.Printf("[Google STT] API error: Code %d, Status %s, Message: %s", envelope.Error.Code, envelope.Error.Status, envelope.Error.Message)
	} else {
		log.Printf("[Google STT] API error: Status %d, Body: %s", resp.StatusCode, truncateString(string(body), 500))
	}
	return remoteErr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// truncateString truncates string to max length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
