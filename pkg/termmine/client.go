// Package termmine calls an OpenAI-compatible chat completion API to mine
// domain terminology from page text. Failures never escape this package:
// every transport, status, or parse problem degrades to an empty result
// with a log entry, and the caller treats "no terms" as a valid outcome.
package termmine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
)

// Suggestion is one mined term with a beginner-level explanation.
type Suggestion struct {
	Term        string `json:"term"`
	Description string `json:"desc"`
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string

	// MinTextChars is the floor below which no request is made.
	// MaxInputChars bounds the request body. Both are character counts,
	// not tokens.
	MinTextChars  int
	MaxInputChars int

	// Timeout is generous because long documents are slow to process. The
	// call is never retried here; retry policy belongs to the task that
	// invoked it.
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.MinTextChars == 0 {
		cfg.MinTextChars = 50
	}
	if cfg.MaxInputChars == 0 {
		cfg.MaxInputChars = 50000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

const promptTemplate = `You are a professional book editor and subject-matter expert. Analyze the following excerpt, determine the field or industry it belongs to, and extract 10 to 50 of the field's most important technical terms.

Requirements:
1. Adapt to the domain automatically (blockchain text yields Web3 terms, a medical text yields medical terms, a history text yields proper nouns and events).
2. Only pick terms with real domain-specific meaning; judge them by specificity and relevance to the surrounding text.
3. Exclude generic vocabulary such as "we", "analysis", or "development".
4. Keep each explanation precise, suitable for a beginner, and under 80 characters.
5. Return nothing but a raw JSON array: no markdown, no code fences, no prefix or suffix.

Response format example:
[
    {"term": "Term A", "desc": "Explanation of term A..."},
    {"term": "Term B", "desc": "Explanation of term B..."}
]

Excerpt:
%s`

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractTerms mines terminology from text. It returns an empty slice for
// short input and for any failure along the way.
func (c *Client) ExtractTerms(ctx context.Context, text string) []Suggestion {
	log := logger.FromContext(ctx)

	// Both limits are character counts, so measure and cut in runes. A
	// byte-level cut could split a multibyte character.
	runes := []rune(text)
	if len(runes) < c.cfg.MinTextChars {
		return nil
	}
	if len(runes) > c.cfg.MaxInputChars {
		text = string(runes[:c.cfg.MaxInputChars])
	}

	payload, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: fmt.Sprintf(promptTemplate, text)}},
		Temperature: 0.3,
	})
	if err != nil {
		log.Err(errors.WithStack(err)).Error("term mining request marshal error")
		return nil
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		log.Err(errors.WithStack(err)).Error("term mining request error")
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Err(errors.WithStack(err)).Error("term mining call failed")
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Err(errors.WithStack(err)).Error("term mining response read error")
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		log.Error("term mining api error", logger.Data{"status": resp.StatusCode, "body": string(body)})
		return nil
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Err(errors.WithStack(err)).Error("term mining response parse error")
		return nil
	}
	if len(parsed.Choices) == 0 {
		log.Warn("term mining response had no choices")
		return nil
	}

	content := stripFences(parsed.Choices[0].Message.Content)

	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(content), &suggestions); err != nil {
		log.Err(errors.WithStack(err)).Error("term mining content parse error", logger.Data{"content": content})
		return nil
	}

	return suggestions
}

// stripFences removes markdown code-fence wrapping that models emit despite
// being told not to.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
