package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// CleanedTranscript represents the cleaned transcript result
type CleanedTranscript struct {
	CleanedText  string   `json:"cleaned_text"`
	Summary      string   `json:"summary"`
	DecodedWords []string `json:"decoded_words,omitempty"`
}

// Cleaner fixes recognition errors in a transcript using a chat model
type Cleaner struct {
	client *openai.Client
	model  string
}

// NewCleaner creates a cleaner backed by GPT-4o-mini
func NewCleaner(client *openai.Client) *Cleaner {
	return &Cleaner{
		client: client,
		model:  openai.GPT4oMini,
	}
}

const cleanSystemPrompt = `You clean up machine transcriptions of speech.
- Fix misheard words, stutters and missing punctuation
- Keep the speaker's meaning and wording; do not add content
- Keep the language of the transcript
- If unsure about a word, keep it and list it in decoded_words`

// Clean sends the transcript to the model and returns the cleaned version.
// An empty cleaned text falls back to the original transcript.
func (c *Cleaner) Clean(ctx context.Context, transcript string, languageCode string) (*CleanedTranscript, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("transcript is empty")
	}

	log.Printf("[AI Cleanup] Original transcript length: %d characters", len(transcript))

	userPrompt := fmt.Sprintf(`Language: %s

Clean the following transcript:

"""
%s
"""

Return JSON with format:
{
  "cleaned_text": "the corrected transcript",
  "summary": "one sentence summary",
  "decoded_words": ["heard -> corrected"]
}`, languageCode, transcript)

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: cleanSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	log.Printf("[AI Cleanup] Calling OpenAI API with model: %s", c.model)
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Printf("[AI Cleanup] OpenAI API error while cleaning: %v", err)
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI returned no choices")
	}

	content := resp.Choices[0].Message.Content
	log.Printf("[AI Cleanup] Response received (length: %d)", len(content))
	log.Printf("[AI Cleanup] Usage - Prompt tokens: %d, Completion tokens: %d, Total tokens: %d",
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)

	var result CleanedTranscript
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		log.Printf("[AI Cleanup] Failed to parse response. Attempting to extract from markdown...")
		if err := json.Unmarshal([]byte(extractJSONFromMarkdown(content)), &result); err != nil {
			log.Printf("[AI Cleanup] ERROR: Failed to parse cleaned transcript JSON. Raw: %s", truncateString(content, 500))
			return nil, fmt.Errorf("failed to parse OpenAI response as JSON: %w", err)
		}
	}

	if len(result.DecodedWords) > 0 {
		log.Printf("[AI Cleanup] Decoded words: %v", result.DecodedWords)
	}

	if strings.TrimSpace(result.CleanedText) == "" {
		log.Printf("[AI Cleanup] WARNING: Cleaned text is empty, using original transcript")
		result.CleanedText = transcript
	}

	return &result, nil
}
