package feedback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/carelog-g8/carelog/internal/config"
	"github.com/carelog-g8/carelog/internal/core/ports"
)

var ErrEmptyFeedback = errors.New("feedback: model returned no text")

const promptTemplate = `You are an AI in a hospital that gives feedback to patients based on their notes.
The patient reported the following:
- Mood: %d/10
- Pain: %d/10
- Appetite: %d/10

Patient Notes:
%s

Provide useful feedback and things that the patient can do to feel better. Be kind and encouraging.
Do not assume things. Provide one paragraph of around 200 words. Only print the paragraph and nothing else.

Feedback:
`

// GeminiClient calls the generateContent endpoint of the Generative Language API.
type GeminiClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker
	log     *zap.Logger
}

var _ ports.FeedbackGenerator = (*GeminiClient)(nil)

func NewGeminiClient(cfg config.FeedbackConfig, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		cb:      config.NewCircuitBreaker("Feedback-API", logger),
		log:     logger,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func buildPrompt(notes string, mood, pain, appetite int) string {
	return fmt.Sprintf(promptTemplate, mood, pain, appetite, notes)
}

func (c *GeminiClient) Generate(ctx context.Context, notes string, mood, pain, appetite int) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: buildPrompt(notes, mood, pain, appetite)}}}},
	})
	if err != nil {
		return "", err
	}

	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.call(ctx, body)
	})
	if err != nil {
		c.log.Warn("feedback: generation request failed", zap.Error(err))
		return "", err
	}
	return out.(string), nil
}

func (c *GeminiClient) call(ctx context.Context, body []byte) (string, error) {
	// The key travels in a header; transport errors quote the URL.
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("feedback: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("feedback: decode response: %w", err)
	}

	var sb strings.Builder
	for _, cand := range parsed.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyFeedback
	}
	return text, nil
}
