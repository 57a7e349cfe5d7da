package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"unicode/utf8"
)

// DefaultResponseBudget is the number of response bytes a decoder accepts
const DefaultResponseBudget = 10 * 1024

const readChunkSize = 4 * 1024

// DecoderState is the stage a Decoder is in
type DecoderState int

const (
	AwaitingData DecoderState = iota
	HaveData
	Done
)

func (s DecoderState) String() string {
	switch s {
	case AwaitingData:
		return "awaiting-data"
	case HaveData:
		return "have-data"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("DecoderState(%d)", int(s))
	}
}

// Decoder accumulates a streamed response body under a fixed byte budget and
// decodes it once, when the stream ends. A Decoder serves a single response.
type Decoder struct {
	mu        sync.Mutex
	budget    int
	remaining int
	buf       bytes.Buffer
	overflow  bool
	state     DecoderState

	done   chan struct{}
	result *Result
	err    error
}

// NewDecoder creates a decoder; a non-positive budget means DefaultResponseBudget
func NewDecoder(budget int) *Decoder {
	if budget <= 0 {
		budget = DefaultResponseBudget
	}
	return &Decoder{
		budget:    budget,
		remaining: budget,
		state:     AwaitingData,
		done:      make(chan struct{}),
	}
}

// Budget returns the configured byte budget
func (d *Decoder) Budget() int {
	return d.budget
}

// Remaining returns how many more bytes the decoder will accept
func (d *Decoder) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remaining
}

// State returns the current decoder state
func (d *Decoder) State() DecoderState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Done is closed once the decoder has finished, whatever the outcome
func (d *Decoder) Done() <-chan struct{} {
	return d.done
}

// Feed offers one chunk of the body. Chunk boundaries carry no meaning.
// At most the remaining budget is taken; the rest marks the response as oversized.
// It returns the number of bytes taken.
func (d *Decoder) Feed(chunk []byte) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == Done || len(chunk) == 0 {
		return 0
	}

	take := len(chunk)
	if take > d.remaining {
		take = d.remaining
		d.overflow = true
	}
	d.buf.Write(chunk[:take])
	d.remaining -= take
	d.state = HaveData
	return take
}

// Close signals end of stream and performs the single decode attempt.
// Later calls return the same outcome.
func (d *Decoder) Close() (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == Done {
		return d.result, d.err
	}

	d.result, d.err = d.decode()
	d.finish()
	return d.result, d.err
}

// Consume reads body chunk by chunk into the decoder and closes it at EOF.
// No more than budget+1 bytes are read from body; the extra byte only detects
// an oversized response and is never decoded.
func (d *Decoder) Consume(ctx context.Context, body io.Reader) (*Result, error) {
	limited := io.LimitReader(body, int64(d.budget)+1)
	chunk := make([]byte, readChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return nil, d.abort(&TransportError{Timeout: errors.Is(err, context.DeadlineExceeded), Err: err})
		}

		n, err := limited.Read(chunk)
		if n > 0 {
			d.Feed(chunk[:n])
		}
		if errors.Is(err, io.EOF) {
			return d.Close()
		}
		if err != nil {
			return nil, d.abort(&TransportError{Timeout: isTimeout(err), Err: fmt.Errorf("failed to read response body: %w", err)})
		}
	}
}

// abort finishes the decoder without a decode attempt
func (d *Decoder) abort(err error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != Done {
		d.err = err
		d.finish()
	}
	return err
}

// finish must be called with mu held
func (d *Decoder) finish() {
	d.state = Done
	d.buf.Reset()
	close(d.done)
}

// decode must be called with mu held
func (d *Decoder) decode() (*Result, error) {
	if d.overflow {
		return nil, &DecodeError{
			BudgetExceeded: true,
			Err:            fmt.Errorf("response exceeds the %d byte budget", d.budget),
		}
	}

	data := d.buf.Bytes()
	if !utf8.Valid(data) {
		return nil, &DecodeError{Err: errors.New("response is not valid UTF-8")}
	}
	body := string(data)
	log.Printf("[Google STT] Response preview: %s", truncateString(body, 500))

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("[Google STT] Failed to parse response. Raw body: %s", truncateString(body, 500))
		return nil, &DecodeError{Err: err}
	}

	result := &Result{
		Raw:         raw,
		RawResponse: body,
	}
	// Valid JSON is enough; the typed view is best effort
	if err := json.Unmarshal(data, &result.Response); err != nil {
		log.Printf("[Google STT] Response is not a recognize result: %v", err)
		return result, nil
	}

	result.Transcript, result.Confidence = result.Response.BestTranscript()
	return result, nil
}
