// Package speechtest provides an in-process stand-in for the Google
// Speech-to-Text recognize endpoint.
package speechtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"speechrec/internal/stt"
)

// HelloResponse is a minimal successful recognize response
const HelloResponse = `{"results":[{"alternatives":[{"transcript":"hello"}]}]}`

// Request is one recorded call to the fake endpoint
type Request struct {
	Method  string
	Path    string
	Header  http.Header
	Body    []byte
	Payload *stt.Payload // nil when the body was not a valid payload
}

// Server is a fake recognize endpoint backed by gin
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
	status   int
	body     string
	chunks   int
	delay    time.Duration
}

// NewServer starts a fake endpoint answering HelloResponse
func NewServer() *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		status: http.StatusOK,
		body:   HelloResponse,
		chunks: 1,
	}

	r := gin.New()
	r.POST("/v1/*method", s.recognize)
	s.Server = httptest.NewServer(r)
	return s
}

// RecognizeURL returns the URL of the recognize method
func (s *Server) RecognizeURL() string {
	return s.URL + "/v1/speech:recognize"
}

// Respond sets the status and body of subsequent responses
func (s *Server) Respond(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.body = body
}

// SplitInto makes the body arrive as n separately flushed chunks
func (s *Server) SplitInto(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 {
		n = 1
	}
	s.chunks = n
}

// Delay holds every response for d before writing anything
func (s *Server) Delay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Requests returns the calls received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Hits returns how many calls were received
func (s *Server) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Server) recognize(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)

	recorded := Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Header: c.Request.Header.Clone(),
		Body:   body,
	}
	var payload stt.Payload
	if err := json.Unmarshal(body, &payload); err == nil {
		recorded.Payload = &payload
	}

	s.mu.Lock()
	s.requests = append(s.requests, recorded)
	status, respBody, chunks, delay := s.status, s.body, s.chunks, s.delay
	s.mu.Unlock()

	if c.Param("method") != "/speech:recognize" {
		apiError(c, http.StatusNotFound, "NOT_FOUND", "method not found")
		return
	}
	if !strings.HasPrefix(c.GetHeader("Authorization"), "Bearer ") {
		apiError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Request is missing required authentication credential.")
		return
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request.Context().Done():
			return
		}
	}

	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(status)
	for _, part := range split(respBody, chunks) {
		if _, err := c.Writer.Write([]byte(part)); err != nil {
			return
		}
		c.Writer.Flush()
	}
}

// apiError writes a Google style error object
func apiError(c *gin.Context, code int, status, msg string) {
	c.JSON(code, gin.H{
		"error": gin.H{
			"code":    code,
			"message": msg,
			"status":  status,
		},
	})
}

func split(body string, n int) []string {
	if n <= 1 || len(body) < n {
		return []string{body}
	}
	size := (len(body) + n - 1) / n
	parts := make([]string, 0, n)
	for start := 0; start < len(body); start += size {
		end := start + size
		if end > len(body) {
			end = len(body)
		}
		parts = append(parts, body[start:end])
	}
	return parts
}
