package stt

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// EncodingAuto asks BuildPayload to pick encoding and sample rate from the file extension
const EncodingAuto = "auto"

// RecognitionConfig represents the recognition parameters sent with the audio
type RecognitionConfig struct {
	Encoding              string `json:"encoding"`
	SampleRateHertz       int    `json:"sampleRateHertz"`
	LanguageCode          string `json:"languageCode"`
	EnableWordTimeOffsets bool   `json:"enableWordTimeOffsets"`
}

// DefaultRecognitionConfig returns 8 kHz LINEAR16 en-US without word offsets
func DefaultRecognitionConfig() RecognitionConfig {
	return RecognitionConfig{
		Encoding:              "LINEAR16",
		SampleRateHertz:       8000,
		LanguageCode:          "en-US",
		EnableWordTimeOffsets: false,
	}
}

// Validate checks that the config can be sent as-is
func (c RecognitionConfig) Validate() error {
	if strings.TrimSpace(c.Encoding) == "" {
		return fmt.Errorf("encoding is required")
	}
	if c.SampleRateHertz <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRateHertz)
	}
	if strings.TrimSpace(c.LanguageCode) == "" {
		return fmt.Errorf("language code is required")
	}
	return nil
}

// Audio represents audio data
type Audio struct {
	Content string `json:"content"` // Base64 encoded
}

// Payload represents the Google Speech-to-Text recognize request body
type Payload struct {
	Config RecognitionConfig `json:"config"`
	Audio  Audio             `json:"audio"`
}

// BuildPayload reads the audio file and assembles the request body
func BuildPayload(audioPath string, cfg RecognitionConfig) (*Payload, error) {
	audioBytes, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, &FileReadError{Path: audioPath, Err: err}
	}

	fileExt := filepath.Ext(audioPath)
	log.Printf("[Google STT] Processing audio file: %s, size: %d bytes, extension: %s",
		audioPath, len(audioBytes), fileExt)

	if strings.EqualFold(cfg.Encoding, EncodingAuto) {
		cfg.Encoding, cfg.SampleRateHertz = RecognitionConfigForFile(fileExt)
		log.Printf("[Google STT] Using encoding %s at %d Hz for extension %s", cfg.Encoding, cfg.SampleRateHertz, fileExt)
	}

	if err := cfg.Validate(); err != nil {
		return nil, &PayloadBuildError{Err: err}
	}

	return &Payload{
		Config: cfg,
		Audio: Audio{
			Content: base64.StdEncoding.EncodeToString(audioBytes),
		},
	}, nil
}

// Encode serializes the payload as the JSON request body
func (p *Payload) Encode() ([]byte, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, &PayloadBuildError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}
	return body, nil
}

// RecognitionConfigForFile determines encoding and sample rate based on file extension
func RecognitionConfigForFile(fileExt string) (string, int) {
	ext := strings.ToLower(fileExt)
	switch ext {
	case ".wav", ".raw", ".pcm":
		return "LINEAR16", 16000
	case ".mp3":
		return "MP3", 44100
	case ".ogg", ".opus":
		return "OGG_OPUS", 48000
	case ".flac":
		return "FLAC", 44100
	case ".amr":
		return "AMR", 8000
	default:
		// Default to LINEAR16
		return "LINEAR16", 16000
	}
}
