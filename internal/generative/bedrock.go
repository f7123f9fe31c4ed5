package generative

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	bedrockruntime "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/merge"
	"go.uber.org/zap"
)

const (
	maxBedrockImages = 5
	maxImageBytes    = 3_750_000
	bedrockMaxTokens = 2000
	anthropicVersion = "bedrock-2023-05-31"
)

type BedrockClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Bedrock generates content with a Claude model on Amazon Bedrock. Images
// are downloaded and sent inline since the model does not fetch URLs.
type Bedrock struct {
	client     BedrockClient
	modelID    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewBedrock(client BedrockClient, modelID string, logger *zap.Logger) (*Bedrock, error) {
	if strings.TrimSpace(modelID) == "" {
		return nil, fmt.Errorf("missing BEDROCK_MODEL_ID")
	}
	return &Bedrock{
		client:     client,
		modelID:    modelID,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     logger,
	}, nil
}

// NewBedrockFromEnv loads the default AWS credential chain for region.
func NewBedrockFromEnv(ctx context.Context, region, modelID string, logger *zap.Logger) (*Bedrock, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewBedrock(bedrockruntime.NewFromConfig(cfg), modelID, logger)
}

func (b *Bedrock) Generate(ctx context.Context, req Request) (*merge.Generated, error) {
	content := make([]map[string]any, 0, 1+maxBedrockImages)
	attached := make([]Image, 0, maxBedrockImages)
	for _, img := range req.Images {
		if len(attached) == maxBedrockImages {
			break
		}
		mediaType, data, err := b.fetchImage(ctx, img.URL)
		if err != nil {
			b.logger.Warn("skipping product image", zap.String("product_id", req.ProductID), zap.String("url", img.URL), zap.Error(err))
			continue
		}
		content = append(content, map[string]any{
			"type": "image",
			"source": map[string]any{
				"type":       "base64",
				"media_type": mediaType,
				"data":       data,
			},
		})
		attached = append(attached, img)
	}
	prompted := req
	prompted.Images = attached
	content = append(content, map[string]any{"type": "text", "text": BuildPrompt(prompted) + "\nReturn JSON matching this schema:\n" + schemaText()})

	payload := map[string]any{
		"anthropic_version": anthropicVersion,
		"max_tokens":        bedrockMaxTokens,
		"temperature":       0.4,
		"system":            systemPrompt,
		"messages": []map[string]any{
			{"role": "user", "content": content},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, bedrockFailure(err)
	}

	var raw struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
	}
	if err := json.Unmarshal(out.Body, &raw); err != nil {
		return nil, &PromptFailure{Name: "DecodeError", Message: err.Error()}
	}
	var text strings.Builder
	for _, c := range raw.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}

	gen, err := ParseGenerated(text.String())
	if err != nil {
		name := "InvalidOutput"
		if raw.StopReason == "max_tokens" {
			name = "Truncated"
		}
		return nil, &PromptFailure{Name: name, Message: err.Error()}
	}
	return gen, nil
}

func bedrockFailure(err error) error {
	failure := &PromptFailure{Name: "InvokeModelError", Message: err.Error()}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		failure.HTTPStatus = respErr.HTTPStatusCode()
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		failure.Name = apiErr.ErrorCode()
		failure.Message = apiErr.ErrorMessage()
	}
	return failure
}

func (b *Bedrock) fetchImage(ctx context.Context, url string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("image fetch status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", "", err
	}
	if len(data) > maxImageBytes {
		return "", "", fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	mediaType := resp.Header.Get("Content-Type")
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	switch mediaType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
	default:
		mediaType = http.DetectContentType(data)
		if !strings.HasPrefix(mediaType, "image/") {
			return "", "", fmt.Errorf("unsupported media type %q", mediaType)
		}
	}
	return mediaType, base64.StdEncoding.EncodeToString(data), nil
}

func schemaText() string {
	b, _ := json.Marshal(Schema())
	return string(b)
}
