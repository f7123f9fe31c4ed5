package merge

// FieldID names a product field the content generator can write.
type FieldID string

const (
	FieldTitle              FieldID = "title"
	FieldDescription        FieldID = "description"
	FieldMetaDescription    FieldID = "meta_description"
	FieldKeywords           FieldID = "keywords"
	FieldAltText            FieldID = "alt_text"
	FieldTone               FieldID = "tone"
	FieldRecipient          FieldID = "recipient"
	FieldCrudenessLanguage  FieldID = "crudeness_language"
	FieldCrudenessSexual    FieldID = "crudeness_sexual"
	FieldCrudenessViolence  FieldID = "crudeness_violence"
	FieldCrudenessSubstance FieldID = "crudeness_substance"
)

// Decision says whether a freshly generated value may replace the live one.
// Key is set for per-image fields and holds the image filename.
type Decision[T any] struct {
	Field FieldID
	Key   string
	Apply bool
	Value T
}

// MergeField overwrites live with fresh only when nobody touched the field
// since the last AI write: either there was no write (last == nil) or the live
// value still equals what was written.
func MergeField[T comparable](field FieldID, last *T, live T, fresh T) Decision[T] {
	if last == nil || live == *last {
		return Decision[T]{Field: field, Apply: true, Value: fresh}
	}
	return Decision[T]{Field: field, Apply: false, Value: live}
}

// keep is the decision used when there is no fresh value to offer.
func keep[T any](field FieldID, live T) Decision[T] {
	return Decision[T]{Field: field, Apply: false, Value: live}
}
