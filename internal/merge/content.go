package merge

import (
	"fmt"
	"strings"
	"time"
)

// Ratings are the four crudeness scores, 1 (mild) to 5 (crude). Zero means
// no value.
type Ratings struct {
	Language  int `json:"language"`
	Sexual    int `json:"sexual"`
	Violence  int `json:"violence"`
	Substance int `json:"substance"`
}

// RecipientKey is the classification the generator returns for who a
// product is meant for. It only becomes a field value once resolved against
// the recipient catalog.
type RecipientKey struct {
	Gender string `json:"gender"`
	Group  string `json:"group"`
	ForKid bool   `json:"for_kid"`
}

// Handle is the metaobject handle the recipient catalog is keyed by,
// e.g. "female-friend-adult".
func (k RecipientKey) Handle() string {
	age := "adult"
	if k.ForKid {
		age = "kid"
	}
	return fmt.Sprintf("%s-%s-%s", handleize(k.Gender), handleize(k.Group), age)
}

func handleize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

type Image struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Alt      string `json:"alt"`
}

// Generated is one response from the content generator. Empty strings,
// nil slices and zero ratings mean the generator had nothing to offer.
type Generated struct {
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	MetaDescription string            `json:"meta_description"`
	Keywords        []string          `json:"keywords"`
	AltTexts        map[string]string `json:"alt_texts"`
	Tone            string            `json:"tone"`
	Recipient       *RecipientKey     `json:"recipient,omitempty"`
	Crudeness       Ratings           `json:"crudeness"`
}

// Live is the product as currently published.
type Live struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	MetaDescription string   `json:"meta_description"`
	Tags            []string `json:"tags"`
	Images          []Image  `json:"images"`
	Tone            string   `json:"tone"`
	RecipientRef    string   `json:"recipient_ref"`
	Crudeness       Ratings  `json:"crudeness"`
}

// RatingValues is Ratings with "never written" distinguished from zero.
type RatingValues struct {
	Language  *int `json:"language,omitempty"`
	Sexual    *int `json:"sexual,omitempty"`
	Violence  *int `json:"violence,omitempty"`
	Substance *int `json:"substance,omitempty"`
}

// Snapshot records the last AI write persisted for a product. Nil fields were
// never written by the generator.
type Snapshot struct {
	Title           *string           `json:"title,omitempty"`
	Description     *string           `json:"description,omitempty"`
	MetaDescription *string           `json:"meta_description,omitempty"`
	Keywords        []string          `json:"keywords"`
	AltTexts        map[string]string `json:"alt_texts"`
	Tone            *string           `json:"tone,omitempty"`
	RecipientKey    string            `json:"recipient_key,omitempty"`
	RecipientRef    *string           `json:"recipient_ref,omitempty"`
	Crudeness       RatingValues      `json:"crudeness"`

	// LiveAtWrite is what the product looked like right after the write.
	LiveAtWrite Live      `json:"live_at_write"`
	WrittenAt   time.Time `json:"written_at"`
}

func (s *Snapshot) clone() Snapshot {
	if s == nil {
		return Snapshot{AltTexts: make(map[string]string)}
	}
	out := *s
	out.Keywords = append([]string(nil), s.Keywords...)
	out.AltTexts = make(map[string]string, len(s.AltTexts))
	for k, v := range s.AltTexts {
		out.AltTexts[k] = v
	}
	return out
}
