package stt

import "strings"

// Response represents Google Speech-to-Text API response
type Response struct {
	Results []SpeechResult `json:"results"`
	Error   *APIError      `json:"error,omitempty"`
}

// SpeechResult represents a recognition result
type SpeechResult struct {
	Alternatives []Alternative `json:"alternatives"`
	LanguageCode string        `json:"languageCode,omitempty"`
}

// Alternative represents a transcript alternative
type Alternative struct {
	Transcript string     `json:"transcript"`
	Confidence float64    `json:"confidence"`
	Words      []WordInfo `json:"words,omitempty"`
}

// WordInfo is only populated when word time offsets are enabled
type WordInfo struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Word      string `json:"word"`
}

// APIError represents an API error
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// errorEnvelope is the shape of non-2xx bodies: {"error": {...}}
type errorEnvelope struct {
	Error *APIError `json:"error"`
}

// BestTranscript joins the first alternative of every result.
// Long audio comes back as several consecutive results.
func (r *Response) BestTranscript() (string, float64) {
	var parts []string
	var confidenceSum float64
	var counted int

	for _, result := range r.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		alt := result.Alternatives[0]
		text := strings.TrimSpace(alt.Transcript)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		confidenceSum += alt.Confidence
		counted++
	}

	if counted == 0 {
		return "", 0
	}
	return strings.Join(parts, " "), confidenceSum / float64(counted)
}
