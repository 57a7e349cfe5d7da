package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"

	"speechrec/internal/ai"
	"speechrec/internal/model"
	"speechrec/internal/stt"
)

// ErrInputNotFound is returned when the audio path is not a regular file
var ErrInputNotFound = errors.New("audio file not available")

// Stage names the pipeline step an outcome stopped at
type Stage string

const (
	StageInput       Stage = "input"
	StagePayload     Stage = "payload"
	StageCredentials Stage = "credentials"
	StageDispatch    Stage = "dispatch"
	StageResponse    Stage = "response"
	StageDecode      Stage = "decode"
	StageDone        Stage = "done"
)

// Sender issues the recognize request
type Sender interface {
	Endpoint() string
	Dispatch(ctx context.Context, token *oauth2.Token, payload *stt.Payload) (*http.Response, error)
}

// Cleaner post-processes a recognized transcript
type Cleaner interface {
	Clean(ctx context.Context, transcript string, languageCode string) (*ai.CleanedTranscript, error)
}

// Options configure one Runner
type Options struct {
	Recognition    stt.RecognitionConfig
	ResponseBudget int
	NotFoundDelay  time.Duration
}

// Outcome is the single terminal result of a run.
// Err is set for fatal failures; DecodeErr is set when the response could not
// be decoded, which still counts as a completed run.
type Outcome struct {
	Run       *model.Run
	Stage     Stage
	Result    *stt.Result
	DecodeErr error
	Cleaned   *ai.CleanedTranscript
	Err       error
}

// Runner chains payload, credentials, dispatch and decode for one audio file
type Runner struct {
	opts    Options
	tokens  oauth2.TokenSource
	sender  Sender
	cleaner Cleaner
}

// NewRunner creates a runner. Each Start uses its own payload, token and decoder.
func NewRunner(opts Options, tokens oauth2.TokenSource, sender Sender) *Runner {
	if opts.ResponseBudget <= 0 {
		opts.ResponseBudget = stt.DefaultResponseBudget
	}
	return &Runner{
		opts:   opts,
		tokens: tokens,
		sender: sender,
	}
}

// WithCleaner enables transcript cleanup after a successful decode
func (r *Runner) WithCleaner(c Cleaner) *Runner {
	r.cleaner = c
	return r
}

// CheckInput reports whether path names a regular file
func CheckInput(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInputNotFound, path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrInputNotFound, path)
	}
	return info, nil
}

// Start launches the pipeline and returns a channel that yields exactly one Outcome
func (r *Runner) Start(ctx context.Context, audioPath string) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		out <- r.execute(ctx, audioPath)
	}()
	return out
}

// Run starts the pipeline and waits for its outcome. Cancelling ctx makes
// every stage unwind; Run still returns only once the pipeline has stopped.
func (r *Runner) Run(ctx context.Context, audioPath string) Outcome {
	pending := r.Start(ctx, audioPath)
	select {
	case outcome := <-pending:
		return outcome
	case <-ctx.Done():
		log.Printf("[Pipeline] Interrupted: %v, waiting for pipeline to stop", ctx.Err())
		return <-pending
	}
}

func (r *Runner) execute(ctx context.Context, audioPath string) Outcome {
	run := model.NewRun(audioPath, r.sender.Endpoint())
	log.Printf("[Pipeline] Run %s started for %s", run.ID, audioPath)

	fail := func(stage Stage, err error) Outcome {
		log.Printf("[Pipeline] Run %s failed at %s: %v", run.ID, stage, err)
		run.Fail(err)
		return Outcome{Run: run, Stage: stage, Err: err}
	}

	info, err := CheckInput(audioPath)
	if err != nil {
		// No network activity; hold for the configured delay before giving up
		if r.opts.NotFoundDelay > 0 {
			timer := time.NewTimer(r.opts.NotFoundDelay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
			}
		}
		return fail(StageInput, err)
	}
	size := int(info.Size())
	run.AudioSizeBytes = &size

	payload, err := stt.BuildPayload(audioPath, r.opts.Recognition)
	if err != nil {
		return fail(StagePayload, err)
	}
	run.Encoding = payload.Config.Encoding
	run.SampleRateHertz = payload.Config.SampleRateHertz
	run.Language = payload.Config.LanguageCode
	_ = run.Advance(model.StatusPayloadReady)

	token, err := stt.FetchToken(ctx, r.tokens)
	if err != nil {
		return fail(StageCredentials, err)
	}
	_ = run.Advance(model.StatusCredentialsAcquired)
	if !token.Expiry.IsZero() {
		log.Printf("[Pipeline] Access token acquired, expires at %s", token.Expiry.Format(time.RFC3339))
	}

	resp, err := r.sender.Dispatch(ctx, token, payload)
	if err != nil {
		return fail(StageDispatch, err)
	}
	defer resp.Body.Close()
	_ = run.Advance(model.StatusRequestSent)
	httpStatus := resp.StatusCode
	run.HTTPStatus = &httpStatus

	if err := stt.CheckStatus(resp, r.opts.ResponseBudget); err != nil {
		return fail(StageResponse, err)
	}

	decoder := stt.NewDecoder(r.opts.ResponseBudget)
	result, err := decoder.Consume(ctx, resp.Body)
	<-decoder.Done()

	var decodeErr *stt.DecodeError
	switch {
	case errors.As(err, &decodeErr):
		log.Printf("[Pipeline] Run %s: %v", run.ID, err)
		_ = run.Advance(model.StatusResponseReceived)
		run.Fail(err)
		return Outcome{Run: run, Stage: StageDecode, DecodeErr: err}
	case err != nil:
		return fail(StageResponse, err)
	}
	_ = run.Advance(model.StatusResponseReceived)

	outcome := Outcome{Run: run, Stage: StageDone, Result: result}
	if result.Transcript != "" {
		transcript, confidence := result.Transcript, result.Confidence
		run.Transcript = &transcript
		run.Confidence = &confidence
		log.Printf("[Pipeline] Transcription successful: confidence=%.2f, length=%d", confidence, len(transcript))

		if r.cleaner != nil {
			cleaned, err := r.cleaner.Clean(ctx, transcript, run.Language)
			if err != nil {
				log.Printf("[Pipeline] Transcript cleanup failed, keeping original: %v", err)
			} else {
				outcome.Cleaned = cleaned
			}
		}
	} else {
		log.Printf("[Pipeline] No speech detected in audio")
	}

	run.Terminate()
	log.Printf("[Pipeline] Run %s finished in %dms", run.ID, *run.ProcessingTimeMs)
	return outcome
}
