package generative

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func newOpenAITest(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	o, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestOpenAIGenerate(t *testing.T) {
	var got responsesRequest
	var raw map[string]any
	o := newOpenAITest(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" || r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		var body json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.Unmarshal(body, &got)
		_ = json.Unmarshal(body, &raw)

		output := `{\"title\":\"Blue Mug\",\"description\":\"<p>Mug</p>\",\"meta_description\":\"m\",\"keywords\":[\"mug\"],\"alt_texts\":[],\"tone\":\"warm\",\"recipient\":{\"gender\":\"male\",\"group\":\"dad\",\"for_kid\":false},\"crudeness\":{\"language\":1,\"sexual\":1,\"violence\":1,\"substance\":1}}`
		_, _ = w.Write([]byte(`{"output":[{"type":"reasoning"},{"type":"message","role":"assistant","content":[{"type":"output_text","text":"` + output + `"}]}]}`))
	})

	gen, err := o.Generate(context.Background(), Request{
		ProductID: "p1",
		Title:     "MUG",
		Images:    []Image{{Filename: "a.jpg", URL: "https://cdn.example.com/a.jpg"}, {Filename: "b.jpg"}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.Title != "Blue Mug" || gen.Recipient.Group != "dad" {
		t.Errorf("generated = %+v", gen)
	}

	if len(got.Input) != 2 || got.Input[0].Role != "system" {
		t.Fatalf("input = %+v", got.Input)
	}
	content, ok := got.Input[1].Content.([]any)
	if !ok || len(content) != 2 {
		t.Fatalf("user content = %#v, want text plus one image", got.Input[1].Content)
	}
	format := raw["text"].(map[string]any)["format"].(map[string]any)
	if format["type"] != "json_schema" || format["strict"] != true {
		t.Errorf("format = %v", format)
	}
}

func TestOpenAIGenerate_HTTPFailure(t *testing.T) {
	o := newOpenAITest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"rate_limit_error","code":"rate_limit_exceeded"}}`))
	})

	_, err := o.Generate(context.Background(), Request{ProductID: "p1"})
	var pf *PromptFailure
	if !errors.As(err, &pf) {
		t.Fatalf("error = %v, want *PromptFailure", err)
	}
	if pf.HTTPStatus != http.StatusTooManyRequests || pf.Name != "rate_limit_error" || pf.Message != "Rate limit reached" {
		t.Errorf("failure = %+v", pf)
	}
}

func TestOpenAIGenerate_Refusal(t *testing.T) {
	o := newOpenAITest(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output":[{"type":"message","role":"assistant","content":[{"type":"refusal","refusal":"I can't help with that."}]}]}`))
	})

	_, err := o.Generate(context.Background(), Request{ProductID: "p1"})
	var pf *PromptFailure
	if !errors.As(err, &pf) || pf.Name != "Refusal" {
		t.Fatalf("error = %v, want refusal", err)
	}
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	if _, err := NewOpenAI(OpenAIConfig{}, zap.NewNop()); err == nil {
		t.Fatal("expected error without api key")
	}
}
