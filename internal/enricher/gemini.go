package enricher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// ErrNoAPIKey is returned when the classifier is invoked without a
// configured credential. It is checked before any network I/O.
var ErrNoAPIKey = errors.New("GEMINI_API_KEY environment variable is not set")

const (
	defaultModel   = "gemini-1.5-flash"
	defaultTimeout = 60 * time.Second
)

// GeminiClassifier classifies transaction info texts with the Google
// Gemini API. The whole batch is submitted as one content generation
// request, so the external call cost is one request per enrichment run
// regardless of transaction volume.
type GeminiClassifier struct {
	apiKey  string
	model   string
	timeout time.Duration
}

// NewGeminiClassifier configures a classifier from the environment.
//
// GEMINI_API_KEY is required for Classify calls, GEMINI_MODEL and
// CLASSIFIER_TIMEOUT (a Go duration) are optional. A missing key is not an
// error here: it only fails when a classification is actually needed.
func NewGeminiClassifier() *GeminiClassifier {
	timeout := defaultTimeout
	if raw, ok := os.LookupEnv("CLASSIFIER_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Warn().Str("CLASSIFIER_TIMEOUT", raw).Msg("could not parse classifier timeout, using default")
		} else {
			timeout = parsed
		}
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultModel
	}

	return &GeminiClassifier{
		apiKey:  os.Getenv("GEMINI_API_KEY"),
		model:   model,
		timeout: timeout,
	}
}

// Classify submits all texts in a single request and returns the text to
// supplier name mapping the model produced.
func (g *GeminiClassifier) Classify(ctx context.Context, texts []string) (map[string]string, error) {
	if g.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("could not create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(texts)))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("no response from the Gemini API")
	}

	var raw strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		fmt.Fprintf(&raw, "%v", part)
	}

	return parseMapping(raw.String(), texts)
}

// buildPrompt asks for a JSON object so the response can be decoded without
// scraping prose.
func buildPrompt(texts []string) string {
	var b strings.Builder

	b.WriteString("The following lines are free-text descriptions from financial transactions, one per line.\n")
	b.WriteString("For each line, determine the supplier or merchant behind it and return a normalized supplier name.\n")
	b.WriteString("Collapse store numbers, locations and payment noise into the brand name, e.g. \"ICA SUPERMARKET 0734 STOCKHOLM\" becomes \"ICA\".\n")
	b.WriteString("Respond with a single JSON object that maps every input line verbatim to its supplier name. ")
	b.WriteString("Use an empty string when no supplier can be determined. Respond with JSON only, no explanation.\n\n")

	for _, text := range texts {
		b.WriteString(text)
		b.WriteString("\n")
	}

	return b.String()
}

// parseMapping decodes the model response into a text to supplier mapping.
// Texts that were not asked for are dropped, code fences around the JSON
// are tolerated.
func parseMapping(raw string, texts []string) (map[string]string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("the Gemini response contains no JSON object: %q", raw)
	}

	var decoded map[string]string
	if err := json.Unmarshal([]byte(raw[start:end+1]), &decoded); err != nil {
		return nil, fmt.Errorf("could not decode the Gemini response: %w", err)
	}

	requested := make(map[string]bool, len(texts))
	for _, text := range texts {
		requested[text] = true
	}

	mapping := make(map[string]string, len(decoded))
	for text, supplier := range decoded {
		if !requested[text] {
			log.Debug().Str("text", text).Msg("dropping unrequested text from the classifier response")
			continue
		}

		mapping[text] = strings.TrimSpace(supplier)
	}

	return mapping, nil
}
