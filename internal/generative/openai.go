package generative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/merge"
	"go.uber.org/zap"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAI generates content through the Responses API with structured output.
type OpenAI struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewOpenAI(cfg OpenAIConfig, logger *zap.Logger) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4.1-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAI{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

type inputMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type responsesRequest struct {
	Model       string         `json:"model"`
	Input       []inputMessage `json:"input"`
	Text        textOptions    `json:"text"`
	Temperature float64        `json:"temperature,omitempty"`
}

type textOptions struct {
	Format map[string]any `json:"format,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
}

type openAIErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func extractOutputText(resp responsesResponse) (text, refusal string) {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, c := range item.Content {
			switch c.Type {
			case "output_text":
				out.WriteString(c.Text)
			case "refusal":
				refusal = c.Refusal
			}
		}
	}
	return out.String(), refusal
}

func (o *OpenAI) Generate(ctx context.Context, req Request) (*merge.Generated, error) {
	content := make([]map[string]any, 0, 1+len(req.Images))
	content = append(content, map[string]any{"type": "input_text", "text": BuildPrompt(req)})
	for _, img := range req.Images {
		if strings.TrimSpace(img.URL) == "" {
			continue
		}
		content = append(content, map[string]any{
			"type":      "input_image",
			"image_url": img.URL,
			"detail":    "low",
		})
	}

	body := responsesRequest{
		Model: o.model,
		Input: []inputMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: content},
		},
		Temperature: 0.4,
	}
	body.Text.Format = map[string]any{
		"type":   "json_schema",
		"name":   "product_content",
		"schema": Schema(),
		"strict": true,
	}

	raw, err := o.post(ctx, "/v1/responses", body)
	if err != nil {
		return nil, err
	}

	var resp responsesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &PromptFailure{Name: "DecodeError", Message: err.Error()}
	}
	text, refusal := extractOutputText(resp)
	if refusal != "" {
		return nil, &PromptFailure{Name: "Refusal", Message: refusal}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &PromptFailure{Name: "EmptyOutput", Message: "no output_text found in response"}
	}

	gen, err := ParseGenerated(text)
	if err != nil {
		return nil, &PromptFailure{Name: "InvalidOutput", Message: err.Error()}
	}
	o.logger.Debug("openai content generated", zap.String("product_id", req.ProductID), zap.Int("images", len(req.Images)))
	return gen, nil
}

func (o *OpenAI) post(ctx context.Context, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, &PromptFailure{Name: "TransportError", Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &PromptFailure{HTTPStatus: resp.StatusCode, Name: "TransportError", Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		failure := &PromptFailure{HTTPStatus: resp.StatusCode, Name: http.StatusText(resp.StatusCode), Message: truncate(string(raw), 500)}
		var eb openAIErrorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error.Message != "" {
			failure.Message = eb.Error.Message
			if eb.Error.Type != "" {
				failure.Name = eb.Error.Type
			}
		}
		return nil, failure
	}
	return raw, nil
}
