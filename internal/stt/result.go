package stt

// Result represents the decoded response of one recognize call
type Result struct {
	Raw         any      // Generic decoding of the body, printed as-is
	Response    Response // Typed view of the same body
	Transcript  string   // Best transcript, empty if no speech was recognized
	Confidence  float64  // Mean confidence of the chosen alternatives (0.0-1.0)
	RawResponse string   // Raw response body (for debugging/logging)
}
