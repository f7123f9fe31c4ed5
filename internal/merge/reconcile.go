package merge

import (
	"time"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/report"
)

// RecipientResolver finds the recipient reference for a classification.
type RecipientResolver interface {
	ResolveRecipient(key RecipientKey) (ref string, ok bool)
}

type Input struct {
	// Code identifies the product in reported issues, usually its SKU.
	Code     string
	Snapshot *Snapshot
	Live     Live
	// Fresh is nil when the content generator failed; FreshErr says why.
	Fresh    *Generated
	FreshErr error
}

type RatingDecisions struct {
	Language  Decision[int]
	Sexual    Decision[int]
	Violence  Decision[int]
	Substance Decision[int]
}

// Plan is the per-field outcome of one reconciliation pass plus the snapshot
// to persist once the writes succeed.
type Plan struct {
	Title           Decision[string]
	Description     Decision[string]
	MetaDescription Decision[string]
	Tone            Decision[string]
	Recipient       Decision[string]
	Crudeness       RatingDecisions
	AltTexts        []Decision[string]
	Tags            TagMerge
	TagsChanged     bool

	// Changed lists the fields whose value to write differs from live.
	Changed []FieldID
	// Notices are attention-required issues that did not stop the merge.
	Notices []error

	Next Snapshot
}

func (p *Plan) HasWrites() bool {
	return len(p.Changed) > 0
}

// AltTextFor returns the decision for the image with the given filename.
func (p *Plan) AltTextFor(filename string) (Decision[string], bool) {
	for _, d := range p.AltTexts {
		if d.Key == filename {
			return d, true
		}
	}
	return Decision[string]{}, false
}

// Reconcile merges freshly generated content into the live product field by
// field. When generation failed nothing is merged and the returned error is
// an AIAnalysisFailed report error.
func Reconcile(in Input, recipients RecipientResolver, now time.Time) (*Plan, error) {
	if in.Fresh == nil {
		return nil, report.AIAnalysisFailed(in.Code, in.FreshErr)
	}

	snap := in.Snapshot
	fresh := in.Fresh
	live := in.Live
	next := snap.clone()
	plan := &Plan{Changed: make([]FieldID, 0), Notices: make([]error, 0)}

	text := func(field FieldID, last *string, liveValue, freshValue string, record **string) Decision[string] {
		if freshValue == "" {
			return keep(field, liveValue)
		}
		v := freshValue
		*record = &v
		d := MergeField(field, last, liveValue, freshValue)
		if d.Apply && d.Value != liveValue {
			plan.Changed = append(plan.Changed, field)
		}
		return d
	}
	rating := func(field FieldID, last *int, liveValue, freshValue int, record **int) Decision[int] {
		if freshValue < 1 || freshValue > 5 {
			return keep(field, liveValue)
		}
		v := freshValue
		*record = &v
		d := MergeField(field, last, liveValue, freshValue)
		if d.Apply && d.Value != liveValue {
			plan.Changed = append(plan.Changed, field)
		}
		return d
	}

	var last Snapshot
	if snap != nil {
		last = *snap
	}

	plan.Title = text(FieldTitle, last.Title, live.Title, fresh.Title, &next.Title)
	plan.Description = text(FieldDescription, last.Description, live.Description, fresh.Description, &next.Description)
	plan.MetaDescription = text(FieldMetaDescription, last.MetaDescription, live.MetaDescription, fresh.MetaDescription, &next.MetaDescription)
	plan.Tone = text(FieldTone, last.Tone, live.Tone, fresh.Tone, &next.Tone)

	plan.Recipient = keep(FieldRecipient, live.RecipientRef)
	if fresh.Recipient != nil {
		key := *fresh.Recipient
		ref, ok := "", false
		if recipients != nil {
			ref, ok = recipients.ResolveRecipient(key)
		}
		if ok {
			next.RecipientKey = key.Handle()
			plan.Recipient = text(FieldRecipient, last.RecipientRef, live.RecipientRef, ref, &next.RecipientRef)
		} else {
			plan.Notices = append(plan.Notices, report.MissingRecipientDefinition(in.Code, key.Handle()))
		}
	}

	plan.Crudeness = RatingDecisions{
		Language:  rating(FieldCrudenessLanguage, last.Crudeness.Language, live.Crudeness.Language, fresh.Crudeness.Language, &next.Crudeness.Language),
		Sexual:    rating(FieldCrudenessSexual, last.Crudeness.Sexual, live.Crudeness.Sexual, fresh.Crudeness.Sexual, &next.Crudeness.Sexual),
		Violence:  rating(FieldCrudenessViolence, last.Crudeness.Violence, live.Crudeness.Violence, fresh.Crudeness.Violence, &next.Crudeness.Violence),
		Substance: rating(FieldCrudenessSubstance, last.Crudeness.Substance, live.Crudeness.Substance, fresh.Crudeness.Substance, &next.Crudeness.Substance),
	}

	plan.AltTexts = make([]Decision[string], 0, len(live.Images))
	altChanged := false
	for _, img := range live.Images {
		if img.Filename == "" {
			continue
		}
		freshAlt := fresh.AltTexts[img.Filename]
		if freshAlt == "" {
			continue
		}
		var lastAlt *string
		if v, ok := last.AltTexts[img.Filename]; ok {
			lastAlt = &v
		}
		d := MergeField(FieldAltText, lastAlt, img.Alt, freshAlt)
		d.Key = img.Filename
		next.AltTexts[img.Filename] = freshAlt
		plan.AltTexts = append(plan.AltTexts, d)
		if d.Apply && d.Value != img.Alt {
			altChanged = true
		}
	}
	if altChanged {
		plan.Changed = append(plan.Changed, FieldAltText)
	}

	if fresh.Keywords != nil {
		var prior []string
		if snap != nil {
			prior = snap.Keywords
		}
		plan.Tags = MergeKeywords(prior, live.Tags, fresh.Keywords)
		next.Keywords = plan.Tags.SnapshotKeywords
		if !sameSet(plan.Tags.Tags, live.Tags) {
			plan.TagsChanged = true
			plan.Changed = append(plan.Changed, FieldKeywords)
		}
	} else {
		plan.Tags = TagMerge{Tags: live.Tags, Banned: []string{}, SnapshotKeywords: next.Keywords}
	}

	next.LiveAtWrite = plan.liveAfter(live)
	next.WrittenAt = now
	plan.Next = next

	return plan, nil
}

// liveAfter is the product as it will look once the plan is written.
func (p *Plan) liveAfter(live Live) Live {
	out := live
	out.Title = p.Title.Value
	out.Description = p.Description.Value
	out.MetaDescription = p.MetaDescription.Value
	out.Tone = p.Tone.Value
	out.RecipientRef = p.Recipient.Value
	out.Crudeness = Ratings{
		Language:  p.Crudeness.Language.Value,
		Sexual:    p.Crudeness.Sexual.Value,
		Violence:  p.Crudeness.Violence.Value,
		Substance: p.Crudeness.Substance.Value,
	}
	out.Tags = append([]string(nil), p.Tags.Tags...)
	out.Images = make([]Image, len(live.Images))
	for i, img := range live.Images {
		if d, ok := p.AltTextFor(img.Filename); ok {
			img.Alt = d.Value
		}
		out.Images[i] = img
	}
	return out
}
