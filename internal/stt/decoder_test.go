package stt

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

const helloBody = `{"results":[{"alternatives":[{"transcript":"hello","confidence":0.9}]}]}`

func isDone(d *Decoder) bool {
	select {
	case <-d.Done():
		return true
	default:
		return false
	}
}

func TestDecoderSingleChunk(t *testing.T) {
	d := NewDecoder(DefaultResponseBudget)
	if d.State() != AwaitingData {
		t.Fatalf("initial state = %s, want awaiting-data", d.State())
	}

	d.Feed([]byte(helloBody))
	if d.State() != HaveData {
		t.Errorf("state after feed = %s, want have-data", d.State())
	}
	if isDone(d) {
		t.Fatal("decoder done before end of stream")
	}

	result, err := d.Close()
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !isDone(d) || d.State() != Done {
		t.Error("decoder not done after Close")
	}
	if result.Transcript != "hello" || result.Confidence != 0.9 {
		t.Errorf("transcript = %q (%.2f), want hello (0.90)", result.Transcript, result.Confidence)
	}
	if d.Remaining() != DefaultResponseBudget-len(helloBody) {
		t.Errorf("remaining = %d, want %d", d.Remaining(), DefaultResponseBudget-len(helloBody))
	}
}

func TestDecoderFragmentedBody(t *testing.T) {
	d := NewDecoder(DefaultResponseBudget)
	for i := 0; i < len(helloBody); i += 5 {
		end := i + 5
		if end > len(helloBody) {
			end = len(helloBody)
		}
		d.Feed([]byte(helloBody[i:end]))
	}

	result, err := d.Close()
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	want := map[string]any{
		"results": []any{
			map[string]any{"alternatives": []any{
				map[string]any{"transcript": "hello", "confidence": 0.9},
			}},
		},
	}
	if !reflect.DeepEqual(result.Raw, want) {
		t.Errorf("raw = %#v, want %#v", result.Raw, want)
	}
}

func TestDecoderBudgetExceeded(t *testing.T) {
	d := NewDecoder(16)
	taken := d.Feed([]byte(helloBody))
	if taken != 16 {
		t.Errorf("Feed took %d bytes, want 16", taken)
	}
	if d.Remaining() != 0 {
		t.Errorf("remaining = %d, want 0", d.Remaining())
	}
	if n := d.Feed([]byte("more")); n != 0 {
		t.Errorf("Feed past budget took %d bytes", n)
	}

	_, err := d.Close()
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) || !decodeErr.BudgetExceeded {
		t.Fatalf("error = %v, want budget DecodeError", err)
	}
	if !isDone(d) {
		t.Error("decoder not done after budget failure")
	}
}

func TestDecoderExactBudget(t *testing.T) {
	d := NewDecoder(len(helloBody))
	d.Feed([]byte(helloBody))
	if _, err := d.Close(); err != nil {
		t.Errorf("body of exactly the budget: error = %v", err)
	}
}

func TestDecoderInvalidBodies(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "empty", body: nil},
		{name: "html", body: []byte("<html>Bad Gateway</html>")},
		{name: "truncated", body: []byte(helloBody[:20])},
		{name: "invalid utf-8", body: []byte{'"', 0xff, 0xfe, '"'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(DefaultResponseBudget)
			d.Feed(tt.body)
			result, err := d.Close()
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("error = %v, want *DecodeError", err)
			}
			if decodeErr.BudgetExceeded {
				t.Error("BudgetExceeded set for an in-budget body")
			}
			if result != nil {
				t.Errorf("result = %+v, want nil", result)
			}
			if !isDone(d) {
				t.Error("decoder not done after decode failure")
			}
		})
	}
}

func TestDecoderCloseIsIdempotent(t *testing.T) {
	d := NewDecoder(DefaultResponseBudget)
	d.Feed([]byte(helloBody))
	first, err1 := d.Close()
	second, err2 := d.Close()
	if first != second || err1 != err2 {
		t.Error("second Close returned a different outcome")
	}
	if n := d.Feed([]byte("x")); n != 0 {
		t.Errorf("Feed after Close took %d bytes", n)
	}
}

func TestDecoderAcceptsNonRecognizeJSON(t *testing.T) {
	d := NewDecoder(DefaultResponseBudget)
	d.Feed([]byte(`[1,2,3]`))
	result, err := d.Close()
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if result.Transcript != "" {
		t.Errorf("transcript = %q, want empty", result.Transcript)
	}
	if !reflect.DeepEqual(result.Raw, []any{1.0, 2.0, 3.0}) {
		t.Errorf("raw = %#v", result.Raw)
	}
}

type countingReader struct {
	r    io.Reader
	read int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += n
	return n, err
}

func TestConsumeStopsAtBudget(t *testing.T) {
	body := &countingReader{r: strings.NewReader(strings.Repeat("x", 100000))}
	d := NewDecoder(1024)

	_, err := d.Consume(context.Background(), body)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) || !decodeErr.BudgetExceeded {
		t.Fatalf("error = %v, want budget DecodeError", err)
	}
	if body.read > 1025 {
		t.Errorf("read %d bytes from body, want at most 1025", body.read)
	}
}

func TestConsumeSuccess(t *testing.T) {
	d := NewDecoder(DefaultResponseBudget)
	result, err := d.Consume(context.Background(), io.MultiReader(
		strings.NewReader(helloBody[:10]),
		strings.NewReader(helloBody[10:]),
	))
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if result.Transcript != "hello" {
		t.Errorf("transcript = %q, want hello", result.Transcript)
	}
	if result.RawResponse != helloBody {
		t.Errorf("raw response = %q", result.RawResponse)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestConsumeReadFailure(t *testing.T) {
	d := NewDecoder(DefaultResponseBudget)
	_, err := d.Consume(context.Background(), failingReader{})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error = %v, want *TransportError", err)
	}
	if !isDone(d) {
		t.Error("decoder not done after read failure")
	}
}

func TestConsumeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDecoder(DefaultResponseBudget)
	_, err := d.Consume(ctx, strings.NewReader(helloBody))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if !isDone(d) {
		t.Error("decoder not done after cancellation")
	}
}

func TestBestTranscript(t *testing.T) {
	resp := Response{Results: []SpeechResult{
		{Alternatives: []Alternative{{Transcript: " hello ", Confidence: 0.8}, {Transcript: "yellow"}}},
		{},
		{Alternatives: []Alternative{{Transcript: "world", Confidence: 0.6}}},
	}}
	text, confidence := resp.BestTranscript()
	if text != "hello world" {
		t.Errorf("transcript = %q, want %q", text, "hello world")
	}
	if confidence < 0.699 || confidence > 0.701 {
		t.Errorf("confidence = %f, want 0.7", confidence)
	}

	empty := Response{}
	if text, _ := empty.BestTranscript(); text != "" {
		t.Errorf("empty response transcript = %q", text)
	}
}
