package pii

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/ollama/ollama/api"
)

const (
	defaultModel   = "llama3.2"
	defaultTimeout = 30 * time.Second
)

// ErrInvalidResponse reports model output that is not a verdict list.
var ErrInvalidResponse = errors.New("model returned an invalid response")

const promptTemplate = `Act as a data privacy expert.
Given the list of column names below, classify how likely each one is to
contain Personally Identifiable Information (PII).

Return a valid JSON array where each object contains:
- "column_name" (string): the name of the column
- "score" (number): likelihood from 0.0 (not PII) to 1.0 (definitely PII)
- "reason" (string): a short reason explaining the classification

Columns:
%s

Example output:
[{"column_name": "email", "score": 1.0, "reason": "email addresses identify a person"}]`

// AIConfig holds Ollama connection settings.
type AIConfig struct {
	// Host is the Ollama API endpoint; empty uses OLLAMA_HOST or the
	// library default
	Host string

	// Model defaults to llama3.2
	Model string

	// Timeout bounds one Classify call
	Timeout time.Duration
}

// AIClassifier asks a language model served by Ollama to score columns.
// Its output is nondeterministic; callers filter verdicts by score.
type AIClassifier struct {
	client *api.Client
	config AIConfig
	logger hclog.Logger
}

// NewAIClassifier creates an Ollama-backed classifier.
func NewAIClassifier(cfg AIConfig, logger hclog.Logger) (*AIClassifier, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	var client *api.Client
	if cfg.Host != "" {
		parsedURL, err := url.Parse(cfg.Host)
		if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
			return nil, &ClassifierError{Classifier: "ai", Err: fmt.Errorf("invalid ollama host '%s'", cfg.Host)}
		}
		client = api.NewClient(parsedURL, http.DefaultClient)
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, &ClassifierError{Classifier: "ai", Err: err}
		}
	}

	return &AIClassifier{client: client, config: cfg, logger: logger}, nil
}

// Name implements Classifier.
func (a *AIClassifier) Name() string {
	return "ai"
}

// Classify implements Classifier. Every failure, including unparseable
// model output, is returned as a *ClassifierError.
func (a *AIClassifier) Classify(ctx context.Context, columns []string) ([]Verdict, error) {
	if len(columns) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	lines := make([]string, len(columns))
	for i, col := range columns {
		lines[i] = "- " + col
	}

	stream := false
	req := &api.ChatRequest{
		Model: a.config.Model,
		Messages: []api.Message{
			{Role: "user", Content: fmt.Sprintf(promptTemplate, strings.Join(lines, "\n"))},
		},
		Options: map[string]interface{}{
			"temperature": 0,
		},
		Stream: &stream,
	}

	a.logger.Debug("sending classification request", "model", a.config.Model, "columns", len(columns))

	var content strings.Builder
	err := a.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		a.logger.Error("classification request failed", "model", a.config.Model, "error", err)
		return nil, &ClassifierError{Classifier: a.Name(), Err: err}
	}

	verdicts, err := parseVerdicts(content.String())
	if err != nil {
		a.logger.Debug("unparseable model output", "content", content.String())
		return nil, &ClassifierError{Classifier: a.Name(), Err: err}
	}
	return verdicts, nil
}

// parseVerdicts extracts the verdict array from model output. It accepts
// a bare array, an array wrapped in an object or code fences, and
// single-quoted pseudo-JSON.
func parseVerdicts(content string) ([]Verdict, error) {
	text := strings.TrimSpace(content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON array found", ErrInvalidResponse)
	}
	text = text[start : end+1]

	var verdicts []Verdict
	if err := json.Unmarshal([]byte(text), &verdicts); err != nil {
		if err2 := json.Unmarshal([]byte(strings.ReplaceAll(text, "'", `"`)), &verdicts); err2 != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}

	for _, v := range verdicts {
		if v.ColumnName == "" {
			return nil, fmt.Errorf("%w: verdict without column_name", ErrInvalidResponse)
		}
	}
	return verdicts, nil
}
