package generative

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/merge"
)

const systemPrompt = `You write e-commerce copy for a gift and apparel store.
Answer with a single JSON object that follows the provided schema and nothing else.
Titles stay under 70 characters. Meta descriptions stay under 160 characters.
Descriptions are short HTML using only <p>, <ul>, <li> and <strong>.
Keywords are lowercase shopping search terms, at most 15.
Alt text describes what is visible in each image, under 125 characters.
Recipient gender is one of: female, male, unisex. Recipient group is a short noun such as friend, mom, dad, coworker, partner.
Crudeness ratings go from 1 (clean) to 5 (explicit) for language, sexual content, violence and substance use.`

// BuildPrompt renders the user message for a product.
func BuildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current title: %s\n", orNone(req.Title))
	fmt.Fprintf(&b, "Current description: %s\n", orNone(req.Description))
	fmt.Fprintf(&b, "Current tags: %s\n", orNone(strings.Join(req.Tags, ", ")))
	if req.Brand != "" {
		fmt.Fprintf(&b, "Brand: %s\n", req.Brand)
	}
	if req.Artist != "" {
		fmt.Fprintf(&b, "Artist: %s\n", req.Artist)
	}
	if len(req.Images) > 0 {
		b.WriteString("Images, in the order attached. Use these exact filenames for alt_texts:\n")
		for _, img := range req.Images {
			fmt.Fprintf(&b, "- %s\n", img.Filename)
		}
	}
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

// Schema is the structured output contract. Strict mode does not accept free
// form maps, so alt texts come back as a list.
func Schema() map[string]any {
	str := map[string]any{"type": "string"}
	rating := map[string]any{"type": "integer", "minimum": 1, "maximum": 5}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"title", "description", "meta_description", "keywords", "alt_texts", "tone", "recipient", "crudeness"},
		"properties": map[string]any{
			"title":            str,
			"description":      str,
			"meta_description": str,
			"keywords":         map[string]any{"type": "array", "items": str},
			"alt_texts": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"filename", "alt"},
					"properties":           map[string]any{"filename": str, "alt": str},
				},
			},
			"tone": str,
			"recipient": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"gender", "group", "for_kid"},
				"properties": map[string]any{
					"gender":  str,
					"group":   str,
					"for_kid": map[string]any{"type": "boolean"},
				},
			},
			"crudeness": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"language", "sexual", "violence", "substance"},
				"properties": map[string]any{
					"language":  rating,
					"sexual":    rating,
					"violence":  rating,
					"substance": rating,
				},
			},
		},
	}
}

type generatedJSON struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	MetaDescription string   `json:"meta_description"`
	Keywords        []string `json:"keywords"`
	AltTexts        []struct {
		Filename string `json:"filename"`
		Alt      string `json:"alt"`
	} `json:"alt_texts"`
	Tone      string              `json:"tone"`
	Recipient *merge.RecipientKey `json:"recipient"`
	Crudeness merge.Ratings       `json:"crudeness"`
}

// ParseGenerated decodes the first JSON object found in the model output.
func ParseGenerated(text string) (*merge.Generated, error) {
	jsonStr := extractFirstJSONObject(strings.TrimSpace(text))
	if jsonStr == "" {
		return nil, fmt.Errorf("model did not return JSON object")
	}

	var raw generatedJSON
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("generated JSON parse failed: %w; raw=%s", err, truncate(jsonStr, 800))
	}

	out := &merge.Generated{
		Title:           strings.TrimSpace(raw.Title),
		Description:     strings.TrimSpace(raw.Description),
		MetaDescription: strings.TrimSpace(raw.MetaDescription),
		Keywords:        raw.Keywords,
		AltTexts:        make(map[string]string, len(raw.AltTexts)),
		Tone:            strings.TrimSpace(raw.Tone),
		Crudeness:       raw.Crudeness,
	}
	for _, a := range raw.AltTexts {
		if a.Filename != "" && strings.TrimSpace(a.Alt) != "" {
			out.AltTexts[a.Filename] = strings.TrimSpace(a.Alt)
		}
	}
	if raw.Recipient != nil && raw.Recipient.Gender != "" && raw.Recipient.Group != "" {
		out.Recipient = raw.Recipient
	}
	return out, nil
}

// extractFirstJSONObject finds the first balanced {...} block, skipping
// braces inside string literals.
func extractFirstJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
