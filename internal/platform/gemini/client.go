// Package gemini is a minimal client for the Generative Language
// generateContent endpoint, used to send a prompt with one inline image.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

var (
	ErrMissingAPIKey = errors.New("gemini api key not configured")
	ErrRequest       = errors.New("gemini request failed")
	ErrNoCandidates  = errors.New("gemini returned no candidates")
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com"

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// GenerationConfig mirrors the generationConfig request object.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// Request is a single-turn prompt with an optional inline image.
type Request struct {
	Prompt   string
	Image    []byte
	MimeType string
	Config   GenerationConfig
}

type Client struct {
	http  *resty.Client
	key   string
	model string
}

// New returns a client, or ErrMissingAPIKey when no key is configured.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	c := resty.New().
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}
	return &Client{http: c, key: cfg.APIKey, model: model}, nil
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateBody struct {
	Contents         []content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// Generate sends the request and returns the text of the first candidate.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	parts := []part{{Text: req.Prompt}}
	if len(req.Image) > 0 {
		mime := req.MimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: mime,
			Data:     base64.StdEncoding.EncodeToString(req.Image),
		}})
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.key).
		SetBody(generateBody{
			Contents:         []content{{Parts: parts}},
			GenerationConfig: req.Config,
		}).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.model))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequest, err)
	}

	body := resp.Body()
	if resp.IsError() {
		msg := gjson.GetBytes(body, "error.message").String()
		return "", fmt.Errorf("%w: status %d: %s", ErrRequest, resp.StatusCode(), msg)
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: response is not json", ErrRequest)
	}

	candidates := gjson.GetBytes(body, "candidates")
	if !candidates.IsArray() || len(candidates.Array()) == 0 {
		return "", ErrNoCandidates
	}
	text := candidates.Get("0.content.parts.0.text").String()
	if text == "" {
		return "", ErrNoCandidates
	}
	return text, nil
}
