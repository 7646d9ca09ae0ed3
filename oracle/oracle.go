// Package oracle asks a language model to guess the selectors of a page.
// Suggestions are best effort: callers fall back to empty selectors on
// any error.
package oracle

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-logr/logr"
	jsoniter "github.com/json-iterator/go"

	"github.com/tmshv/web2rss/internal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed prompts/guess_selectors.md
var guessSelectorsPrompt string

// Bodies beyond this many bytes are cut before being sent.
const maxPromptBody = 200 << 10

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Oracle struct {
	config Config
	client *http.Client
	logger logr.Logger
}

func New(config Config, logger logr.Logger) *Oracle {
	return &Oracle{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.WithName("oracle"),
	}
}

// Enabled reports whether an API key is configured.
func (o *Oracle) Enabled() bool {
	return o != nil && o.config.APIKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

// Suggest sends the page body to the model and returns the selectors it
// proposes. Every failure wraps internal.ErrOracleUnavailable, including
// an answer without an article selector.
func (o *Oracle) Suggest(ctx context.Context, doc *goquery.Document) (internal.Selectors, error) {
	if !o.Enabled() {
		return internal.Selectors{}, fmt.Errorf("%w: no API key", internal.ErrOracleUnavailable)
	}

	body, err := goquery.OuterHtml(doc.Find("body").First())
	if err != nil {
		return internal.Selectors{}, fmt.Errorf("%w: %v", internal.ErrOracleUnavailable, err)
	}
	if len(body) > maxPromptBody {
		body = strings.ToValidUTF8(body[:maxPromptBody], "")
	}

	content, err := o.chat(ctx, []chatMessage{
		{Role: "system", Content: guessSelectorsPrompt},
		{Role: "user", Content: body},
	})
	if err != nil {
		o.logger.Info("Selector suggestion failed", "error", err.Error())
		return internal.Selectors{}, fmt.Errorf("%w: %v", internal.ErrOracleUnavailable, err)
	}

	selectors, err := parseSuggestion(content)
	if err != nil {
		o.logger.Info("Unusable selector suggestion", "error", err.Error())
		return internal.Selectors{}, fmt.Errorf("%w: %v", internal.ErrOracleUnavailable, err)
	}
	return selectors, nil
}

func (o *Oracle) chat(ctx context.Context, messages []chatMessage) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:          o.config.Model,
		Messages:       messages,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(o.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.config.APIKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
	}

	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// parseSuggestion reads the model's JSON answer. Non-string values are
// ignored; a missing article key means there is no suggestion.
func parseSuggestion(content string) (internal.Selectors, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return internal.Selectors{}, fmt.Errorf("malformed JSON answer: %w", err)
	}

	get := func(key string) string {
		s, _ := raw[key].(string)
		return s
	}

	selectors := internal.Selectors{
		Article: get("article"),
		Link:    get("link"),
		Title:   get("title"),
		Date:    get("date"),
		Author:  get("author"),
		Summary: get("summary"),
	}.Trim()

	if selectors.Article == "" {
		return internal.Selectors{}, fmt.Errorf("no article selector suggested")
	}
	if err := selectors.Validate(); err != nil {
		return internal.Selectors{}, err
	}
	return selectors, nil
}
