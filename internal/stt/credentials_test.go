package stt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

type tokenFunc func() (*oauth2.Token, error)

func (f tokenFunc) Token() (*oauth2.Token, error) { return f() }

// fakeServiceAccount parses as a key but can never be exchanged for a token
const fakeServiceAccount = `{
  "type": "service_account",
  "project_id": "speech-test",
  "private_key_id": "0000",
  "private_key": "not a pem key",
  "client_email": "speech@speech-test.iam.gserviceaccount.com",
  "client_id": "1",
  "token_uri": "http://127.0.0.1:1/token"
}`

func TestFetchToken(t *testing.T) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc", TokenType: "Bearer"})
	token, err := FetchToken(context.Background(), ts)
	if err != nil {
		t.Fatalf("FetchToken() error = %v", err)
	}
	if token.AccessToken != "abc" {
		t.Errorf("access token = %q, want abc", token.AccessToken)
	}
}

func TestFetchTokenErrors(t *testing.T) {
	tests := []struct {
		name string
		ts   oauth2.TokenSource
	}{
		{name: "nil source", ts: nil},
		{name: "exchange rejected", ts: tokenFunc(func() (*oauth2.Token, error) {
			return nil, errors.New("invalid_grant: account not found")
		})},
		{name: "empty token", ts: tokenFunc(func() (*oauth2.Token, error) {
			return &oauth2.Token{}, nil
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FetchToken(context.Background(), tt.ts)
			var credErr *CredentialError
			if !errors.As(err, &credErr) {
				t.Errorf("error = %v, want *CredentialError", err)
			}
		})
	}
}

func TestFetchTokenHonorsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	blocking := tokenFunc(func() (*oauth2.Token, error) {
		<-release
		return &oauth2.Token{AccessToken: "late"}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := FetchToken(ctx, blocking)
	var credErr *CredentialError
	if !errors.As(err, &credErr) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want CredentialError wrapping deadline", err)
	}
}

func TestNewTokenSourceBadKeys(t *testing.T) {
	tests := []struct {
		name    string
		keyData string
	}{
		{name: "missing file", keyData: filepath.Join(t.TempDir(), "missing.json")},
		{name: "malformed inline JSON", keyData: `{"type": "service_account",`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenSource(context.Background(), tt.keyData, CloudPlatformScope)
			var credErr *CredentialError
			if !errors.As(err, &credErr) {
				t.Errorf("error = %v, want *CredentialError", err)
			}
		})
	}
}

func TestNewTokenSourceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(path, []byte(fakeServiceAccount), 0o600); err != nil {
		t.Fatalf("failed to write key: %v", err)
	}

	ts, err := NewTokenSource(context.Background(), path, "")
	if err != nil {
		t.Fatalf("NewTokenSource() error = %v", err)
	}

	// The key parses but cannot be exchanged
	_, err = FetchToken(context.Background(), ts)
	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Errorf("error = %v, want *CredentialError", err)
	}
}

func TestKeyTokenSourceIsLazy(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")
	ts := KeyTokenSource(context.Background(), missing, CloudPlatformScope)

	_, err := FetchToken(context.Background(), ts)
	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("error = %v, want *CredentialError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error does not wrap os.ErrNotExist: %v", err)
	}
	var inner *CredentialError
	if errors.As(credErr.Err, &inner) {
		t.Error("credential error wrapped twice")
	}
}
