package stt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// CloudPlatformScope is the OAuth scope of the Speech-to-Text API surface
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// NewTokenSource builds a token source from a service account key.
// keyData can be either:
//   - A file path to a JSON key file (e.g., "./keys/google-service-account.json")
//   - A JSON string containing the service account credentials
//   - Empty, in which case Application Default Credentials are used
func NewTokenSource(ctx context.Context, keyData, scope string) (oauth2.TokenSource, error) {
	if scope == "" {
		scope = CloudPlatformScope
	}
	keyDataTrimmed := strings.TrimSpace(keyData)

	if keyDataTrimmed == "" {
		log.Printf("[Google STT] No key file configured, looking up default credentials")
		creds, err := google.FindDefaultCredentials(ctx, scope)
		if err != nil {
			return nil, &CredentialError{Err: fmt.Errorf("failed to find default credentials: %w. Please set GOOGLE_STT_KEY_FILE", err)}
		}
		return creds.TokenSource, nil
	}

	var jsonData []byte
	if strings.HasPrefix(keyDataTrimmed, "{") {
		log.Printf("[Google STT] Using JSON string from environment variable")
		jsonData = []byte(keyDataTrimmed)
	} else {
		log.Printf("[Google STT] Reading key file: %s", keyDataTrimmed)
		var err error
		jsonData, err = os.ReadFile(keyDataTrimmed)
		if err != nil {
			return nil, &CredentialError{Err: fmt.Errorf("failed to read key file '%s': %w", keyDataTrimmed, err)}
		}
	}

	creds, err := google.CredentialsFromJSON(ctx, jsonData, scope)
	if err != nil {
		return nil, &CredentialError{Err: fmt.Errorf("failed to create credentials from JSON: %w", err)}
	}
	return creds.TokenSource, nil
}

type keyTokenSource struct {
	ctx     context.Context
	keyData string
	scope   string

	once sync.Once
	ts   oauth2.TokenSource
	err  error
}

// KeyTokenSource returns a token source that loads the key on first use, so a
// run that stops before the credential stage never touches the key.
func KeyTokenSource(ctx context.Context, keyData, scope string) oauth2.TokenSource {
	return &keyTokenSource{ctx: ctx, keyData: keyData, scope: scope}
}

func (k *keyTokenSource) Token() (*oauth2.Token, error) {
	k.once.Do(func() {
		k.ts, k.err = NewTokenSource(k.ctx, k.keyData, k.scope)
	})
	if k.err != nil {
		return nil, k.err
	}
	return k.ts.Token()
}

// FetchToken exchanges the credentials for one bearer token.
// The token is neither cached nor refreshed by the caller.
func FetchToken(ctx context.Context, ts oauth2.TokenSource) (*oauth2.Token, error) {
	if ts == nil {
		return nil, &CredentialError{Err: errors.New("no token source configured")}
	}

	type tokenResult struct {
		token *oauth2.Token
		err   error
	}
	// Token() takes no context, so the exchange runs aside and ctx bounds the wait
	done := make(chan tokenResult, 1)
	go func() {
		token, err := ts.Token()
		done <- tokenResult{token: token, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, &CredentialError{Err: ctx.Err()}
	case res := <-done:
		if res.err != nil {
			var credErr *CredentialError
			if errors.As(res.err, &credErr) {
				return nil, credErr
			}
			return nil, &CredentialError{Err: res.err}
		}
		if res.token == nil || res.token.AccessToken == "" {
			return nil, &CredentialError{Err: errors.New("identity provider returned an empty access token")}
		}
		return res.token, nil
	}
}
