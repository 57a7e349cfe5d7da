package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the pipeline state of a run
type Status int

const (
	StatusNotStarted Status = iota
	StatusPayloadReady
	StatusCredentialsAcquired
	StatusRequestSent
	StatusResponseReceived
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not-started"
	case StatusPayloadReady:
		return "payload-ready"
	case StatusCredentialsAcquired:
		return "credentials-acquired"
	case StatusRequestSent:
		return "request-sent"
	case StatusResponseReceived:
		return "response-received"
	case StatusTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Run represents one transcription run record
type Run struct {
	ID               uuid.UUID `json:"id"`
	AudioPath        string    `json:"audio_path"`
	AudioSizeBytes   *int      `json:"audio_size_bytes,omitempty"`
	Encoding         string    `json:"encoding,omitempty"`
	SampleRateHertz  int       `json:"sample_rate_hertz,omitempty"`
	Language         string    `json:"language,omitempty"`
	Endpoint         string    `json:"endpoint"`
	Status           Status    `json:"-"`
	StatusName       string    `json:"status"`
	HTTPStatus       *int      `json:"http_status,omitempty"`
	Transcript       *string   `json:"transcript,omitempty"`
	Confidence       *float64  `json:"confidence,omitempty"`
	ErrorMessage     *string   `json:"error_message,omitempty"`
	ProcessingTimeMs *int      `json:"processing_time_ms,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewRun creates a run record in the not-started state
func NewRun(audioPath, endpoint string) *Run {
	return &Run{
		ID:         uuid.New(),
		AudioPath:  audioPath,
		Endpoint:   endpoint,
		Status:     StatusNotStarted,
		StatusName: StatusNotStarted.String(),
		CreatedAt:  time.Now(),
	}
}

// Advance moves the run forward. Moving backwards or staying put is an error,
// except that a terminated run can be terminated again.
func (r *Run) Advance(next Status) error {
	if next == StatusTerminated && r.Status == StatusTerminated {
		return nil
	}
	if next <= r.Status {
		return fmt.Errorf("run %s: invalid transition %s -> %s", r.ID, r.Status, next)
	}
	r.Status = next
	r.StatusName = next.String()
	return nil
}

// Fail records the error and terminates the run
func (r *Run) Fail(err error) {
	msg := err.Error()
	r.ErrorMessage = &msg
	r.Terminate()
}

// Terminate ends the run and records its processing time
func (r *Run) Terminate() {
	_ = r.Advance(StatusTerminated)
	if r.ProcessingTimeMs == nil {
		ms := int(time.Since(r.CreatedAt).Milliseconds())
		r.ProcessingTimeMs = &ms
	}
}
