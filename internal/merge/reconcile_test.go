package merge

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/report"
)

type recipientCatalog map[string]string

func (c recipientCatalog) ResolveRecipient(key RecipientKey) (string, bool) {
	ref, ok := c[key.Handle()]
	return ref, ok
}

var writtenAt = time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestReconcile_AnalysisFailedMergesNothing(t *testing.T) {
	cause := errors.New("openai http 429: rate limited")
	plan, err := Reconcile(Input{Code: "SKU-1", Fresh: nil, FreshErr: cause}, nil, writtenAt)
	if plan != nil {
		t.Fatalf("expected no plan, got %+v", plan)
	}
	if !report.IsKind(err, report.KindAIAnalysisFailed) {
		t.Fatalf("error = %v, want AIAnalysisFailed", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error does not wrap the provider failure")
	}
}

func TestReconcile_FirstWrite(t *testing.T) {
	live := Live{
		Title:  "MUG-BLUE-01",
		Tags:   []string{"sap"},
		Images: []Image{{ID: "gid://shopify/MediaImage/1", Filename: "mug-front.jpg"}},
	}
	fresh := &Generated{
		Title:           "Ceramic Blue Mug",
		Description:     "<p>A mug.</p>",
		MetaDescription: "Blue ceramic mug",
		Keywords:        []string{"mug", "blue"},
		AltTexts:        map[string]string{"mug-front.jpg": "Blue mug, front view", "missing.jpg": "x"},
		Tone:            "playful",
		Recipient:       &RecipientKey{Gender: "Female", Group: "Friend"},
		Crudeness:       Ratings{Language: 1, Sexual: 1, Violence: 1, Substance: 2},
	}
	catalog := recipientCatalog{"female-friend-adult": "gid://shopify/Metaobject/77"}

	plan, err := Reconcile(Input{Code: "SKU-1", Live: live, Fresh: fresh}, catalog, writtenAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !plan.Title.Apply || plan.Title.Value != "Ceramic Blue Mug" {
		t.Errorf("title decision = %+v", plan.Title)
	}
	if !plan.Recipient.Apply || plan.Recipient.Value != "gid://shopify/Metaobject/77" {
		t.Errorf("recipient decision = %+v", plan.Recipient)
	}
	if len(plan.AltTexts) != 1 || plan.AltTexts[0].Key != "mug-front.jpg" || !plan.AltTexts[0].Apply {
		t.Errorf("alt text decisions = %+v", plan.AltTexts)
	}
	if !reflect.DeepEqual(plan.Tags.Tags, []string{"sap", "mug", "blue"}) {
		t.Errorf("tags = %v", plan.Tags.Tags)
	}
	if !plan.HasWrites() {
		t.Error("expected writes")
	}
	if len(plan.Notices) != 0 {
		t.Errorf("unexpected notices: %v", plan.Notices)
	}

	next := plan.Next
	if next.Title == nil || *next.Title != "Ceramic Blue Mug" {
		t.Errorf("snapshot title = %v", next.Title)
	}
	if next.RecipientKey != "female-friend-adult" {
		t.Errorf("snapshot recipient key = %q", next.RecipientKey)
	}
	if next.LiveAtWrite.Title != "Ceramic Blue Mug" || next.LiveAtWrite.Images[0].Alt != "Blue mug, front view" {
		t.Errorf("live at write = %+v", next.LiveAtWrite)
	}
	if !next.WrittenAt.Equal(writtenAt) {
		t.Errorf("written at = %v", next.WrittenAt)
	}
}

func TestReconcile_RespectsManualEdits(t *testing.T) {
	snap := &Snapshot{
		Title:        strPtr("Blue Mug"),
		Description:  strPtr("<p>Old AI copy</p>"),
		Tone:         strPtr("playful"),
		Keywords:     []string{"a", "b", "c"},
		AltTexts:     map[string]string{"front.jpg": "AI alt"},
		RecipientRef: strPtr("gid://shopify/Metaobject/1"),
		Crudeness:    RatingValues{Language: intPtr(2)},
	}
	live := Live{
		Title:        "Blue Mug (Custom Edit)",
		Description:  "<p>Old AI copy</p>",
		Tone:         "playful",
		Tags:         []string{"a", "c"},
		Images:       []Image{{Filename: "front.jpg", Alt: "Merchant alt"}, {Filename: "back.jpg"}},
		RecipientRef: "gid://shopify/Metaobject/1",
		Crudeness:    Ratings{Language: 4},
	}
	fresh := &Generated{
		Title:       "Ceramic Blue Mug",
		Description: "<p>New AI copy</p>",
		Keywords:    []string{"a", "b", "d"},
		AltTexts:    map[string]string{"front.jpg": "New AI alt", "back.jpg": "Back view"},
		Recipient:   &RecipientKey{Gender: "male", Group: "dad", ForKid: false},
		Crudeness:   Ratings{Language: 1, Violence: 9},
	}

	plan, err := Reconcile(Input{Code: "SKU-2", Snapshot: snap, Live: live, Fresh: fresh}, recipientCatalog{}, writtenAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan.Title.Apply || plan.Title.Value != "Blue Mug (Custom Edit)" {
		t.Errorf("title was clobbered: %+v", plan.Title)
	}
	if !plan.Description.Apply || plan.Description.Value != "<p>New AI copy</p>" {
		t.Errorf("description not refreshed: %+v", plan.Description)
	}
	if plan.Tone.Apply || plan.Tone.Value != "playful" {
		t.Errorf("tone without fresh value should be kept: %+v", plan.Tone)
	}
	if plan.Crudeness.Language.Apply || plan.Crudeness.Language.Value != 4 {
		t.Errorf("hand-edited rating overwritten: %+v", plan.Crudeness.Language)
	}
	if plan.Crudeness.Violence.Apply {
		t.Errorf("out of range rating must not apply: %+v", plan.Crudeness.Violence)
	}

	front, _ := plan.AltTextFor("front.jpg")
	back, _ := plan.AltTextFor("back.jpg")
	if front.Apply || front.Value != "Merchant alt" {
		t.Errorf("front alt clobbered: %+v", front)
	}
	if !back.Apply || back.Value != "Back view" {
		t.Errorf("back alt not written: %+v", back)
	}

	if !reflect.DeepEqual(plan.Tags.Tags, []string{"a", "d"}) {
		t.Errorf("tags = %v, want [a d]", plan.Tags.Tags)
	}
	if !reflect.DeepEqual(plan.Next.Keywords, []string{"a", "b", "d"}) {
		t.Errorf("snapshot keywords = %v, want [a b d]", plan.Next.Keywords)
	}

	if len(plan.Notices) != 1 || !report.IsKind(plan.Notices[0], report.KindMissingRecipientDefinition) {
		t.Fatalf("notices = %v, want one MissingRecipientDefinition", plan.Notices)
	}
	if plan.Recipient.Apply || plan.Recipient.Value != "gid://shopify/Metaobject/1" {
		t.Errorf("unresolved recipient must keep live value: %+v", plan.Recipient)
	}
	if plan.Next.RecipientRef == nil || *plan.Next.RecipientRef != "gid://shopify/Metaobject/1" {
		t.Errorf("unresolved recipient should carry the prior snapshot value, got %v", plan.Next.RecipientRef)
	}

	if plan.Next.Title == nil || *plan.Next.Title != "Ceramic Blue Mug" {
		t.Errorf("snapshot must record the fresh title, got %v", plan.Next.Title)
	}
	if plan.Next.LiveAtWrite.Title != "Blue Mug (Custom Edit)" {
		t.Errorf("live at write title = %q", plan.Next.LiveAtWrite.Title)
	}
	if snap.AltTexts["front.jpg"] != "AI alt" {
		t.Error("Reconcile mutated the prior snapshot")
	}
}

func TestReconcile_ManualEditSurvivesSecondPass(t *testing.T) {
	first, err := Reconcile(Input{
		Code:  "SKU-3",
		Live:  Live{Title: "raw"},
		Fresh: &Generated{Title: "AI v1"},
	}, nil, writtenAt)
	if err != nil {
		t.Fatal(err)
	}

	// merchant edits after the first write
	live := first.Next.LiveAtWrite
	live.Title = "Merchant title"

	second, err := Reconcile(Input{Code: "SKU-3", Snapshot: &first.Next, Live: live, Fresh: &Generated{Title: "AI v2"}}, nil, writtenAt)
	if err != nil {
		t.Fatal(err)
	}
	if second.Title.Apply {
		t.Fatalf("second pass overwrote manual edit: %+v", second.Title)
	}

	third, err := Reconcile(Input{Code: "SKU-3", Snapshot: &second.Next, Live: second.Next.LiveAtWrite, Fresh: &Generated{Title: "AI v3"}}, nil, writtenAt)
	if err != nil {
		t.Fatal(err)
	}
	if third.Title.Apply {
		t.Fatalf("third pass overwrote manual edit: %+v", third.Title)
	}
	if third.HasWrites() {
		t.Errorf("expected no writes, changed = %v", third.Changed)
	}
}

func TestRecipientKeyHandle(t *testing.T) {
	got := RecipientKey{Gender: " Female ", Group: "Best Friend", ForKid: true}.Handle()
	if got != "female-best-friend-kid" {
		t.Errorf("handle = %q", got)
	}
}
