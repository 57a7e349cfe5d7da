package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"speechrec/internal/ai"
	"speechrec/internal/config"
	"speechrec/internal/pipeline"
	"speechrec/internal/stt"
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <AUDIOFILE>\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "<AUDIOFILE> is sent as-is; encoding, sample rate and language come from SPEECH_* environment variables.\n")
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		return exitUsage
	}
	audioPath := flag.Arg(0)

	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(
		pipeline.Options{
			Recognition:    cfg.Recognition,
			ResponseBudget: cfg.ResponseBudget,
			NotFoundDelay:  cfg.NotFoundDelay,
		},
		stt.KeyTokenSource(ctx, cfg.KeyFile, cfg.Scope),
		stt.NewDispatcher(cfg.Endpoint, cfg.Timeout),
	)

	if cfg.CleanTranscript {
		client, err := ai.NewClient(cfg.OpenAIKey, "")
		if err != nil {
			log.Printf("Failed to create OpenAI client: %v", err)
			return exitUsage
		}
		runner.WithCleaner(ai.NewCleaner(client))
	}

	if _, err := pipeline.CheckInput(audioPath); err != nil {
		fmt.Printf("File not available: %s\n", audioPath)
	} else {
		fmt.Printf("File exists: %s\n", audioPath)
	}

	outcome := runner.Run(ctx, audioPath)
	printOutcome(outcome)
	return exitCode(ctx, outcome)
}

func printOutcome(outcome pipeline.Outcome) {
	switch {
	case outcome.Err != nil:
		if outcome.Stage != pipeline.StageInput {
			fmt.Fprintf(os.Stderr, "Error in %s stage: %v\n", outcome.Stage, outcome.Err)
		}
	case outcome.DecodeErr != nil:
		fmt.Printf("Error during speech response: %v\n", outcome.DecodeErr)
	default:
		decoded, err := json.Marshal(outcome.Result.Raw)
		if err != nil {
			decoded = []byte(outcome.Result.RawResponse)
		}
		fmt.Printf("Speech response: %s\n", decoded)
		if outcome.Result.Transcript != "" {
			fmt.Printf("Transcript: %s (confidence %.2f)\n", outcome.Result.Transcript, outcome.Result.Confidence)
		}
		if outcome.Cleaned != nil {
			fmt.Printf("Cleaned transcript: %s\n", outcome.Cleaned.CleanedText)
		}
	}
}
