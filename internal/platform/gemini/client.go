package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yungbote/campuspulse-backend/internal/platform/llm"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

const providerName = "gemini"

const DefaultModel = "gemini-2.5-flash"

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the transport; nil uses the SDK default.
	HTTPClient *http.Client
}

// Client calls generateContent on the Gemini API and returns the first
// candidate's text. It never retries.
type Client struct {
	log     *logger.Logger
	genai   *genai.Client
	model   string
	timeout time.Duration
}

var _ llm.Generator = (*Client)(nil)

func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		log:     log.With("service", "GeminiClient", "model", model),
		genai:   gc,
		model:   model,
		timeout: cfg.Timeout,
	}, nil
}

func (c *Client) Provider() string { return providerName }

func (c *Client) GenerateJSON(ctx context.Context, prompt string, schema llm.Schema) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toSchema(schema),
	})
	if err != nil {
		mapped := mapError(err)
		c.log.Warn("Gemini request failed",
			"schema", schema.Name,
			"kind", mapped.Kind.String(),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err.Error(),
		)
		return "", mapped
	}

	text := firstCandidateText(resp)
	if strings.TrimSpace(text) == "" {
		return "", llm.Malformed(providerName, errors.New("missing candidate content"))
	}
	c.log.Debug("Gemini request ok", "schema", schema.Name, "duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var out strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		out.WriteString(part.Text)
	}
	return out.String()
}

func mapError(err error) *llm.Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.Upstream(providerName, apiErr.Code, upstreamMessage(apiErr))
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return llm.Upstream(providerName, apiErrPtr.Code, upstreamMessage(*apiErrPtr))
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return llm.Malformed(providerName, err)
	}
	return llm.Transport(providerName, err)
}

func upstreamMessage(e genai.APIError) string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = strings.TrimSpace(e.Status)
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", e.Code)
	}
	return msg
}

func toSchema(s llm.Schema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Fields))
	for _, f := range s.Fields {
		switch f.Kind {
		case llm.FieldStringArray:
			props[f.Name] = &genai.Schema{
				Type:        genai.TypeArray,
				Description: f.Description,
				Items:       &genai.Schema{Type: genai.TypeString},
			}
		default:
			props[f.Name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: f.Description,
				Enum:        f.Enum,
			}
		}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   s.FieldNames(),
	}
}
