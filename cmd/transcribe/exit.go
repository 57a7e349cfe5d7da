package main

import (
	"context"
	"errors"

	"speechrec/internal/pipeline"
	"speechrec/internal/stt"
)

const (
	exitOK = iota
	exitUsage
	exitNotFound
	exitPayload
	exitCredentials
	exitTransport
	exitRemote
	exitDecode
	exitInterrupted
)

func exitCode(ctx context.Context, outcome pipeline.Outcome) int {
	if outcome.Err == nil {
		if outcome.DecodeErr != nil {
			return exitDecode
		}
		return exitOK
	}

	// Signal-driven cancellation surfaces as whatever stage was running
	if ctx.Err() != nil {
		return exitInterrupted
	}

	var (
		fileErr      *stt.FileReadError
		payloadErr   *stt.PayloadBuildError
		credErr      *stt.CredentialError
		transportErr *stt.TransportError
		remoteErr    *stt.RemoteError
	)
	switch {
	case errors.Is(outcome.Err, pipeline.ErrInputNotFound):
		return exitNotFound
	case errors.As(outcome.Err, &fileErr), errors.As(outcome.Err, &payloadErr):
		return exitPayload
	case errors.As(outcome.Err, &credErr):
		return exitCredentials
	case errors.As(outcome.Err, &transportErr):
		return exitTransport
	case errors.As(outcome.Err, &remoteErr):
		return exitRemote
	default:
		return exitUsage
	}
}
