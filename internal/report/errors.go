package report

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the conditions that need someone's attention after a batch.
type Kind int

const (
	KindUnrecognizedDateCode Kind = iota + 1
	KindAIAnalysisFailed
	KindMissingRecipientDefinition
	KindMissingReferenceDefinition
	KindCatalogFailure
)

func (k Kind) String() string {
	switch k {
	case KindUnrecognizedDateCode:
		return "UnrecognizedDateCode"
	case KindAIAnalysisFailed:
		return "AIAnalysisFailed"
	case KindMissingRecipientDefinition:
		return "MissingRecipientDefinition"
	case KindMissingReferenceDefinition:
		return "MissingReferenceDefinition"
	case KindCatalogFailure:
		return "CatalogFailure"
	default:
		return "Unknown"
	}
}

// Channel is the notification list an issue ends up in.
type Channel string

const (
	ChannelITError   Channel = "it_error"
	ChannelAttention Channel = "attention"
)

func (k Kind) Channel() Channel {
	switch k {
	case KindMissingRecipientDefinition, KindMissingReferenceDefinition:
		return ChannelAttention
	default:
		return ChannelITError
	}
}

// Error carries the identifier the issue is about (usually a SKU, sometimes an
// artist name or a category code) and a category used to prefix the message.
type Error struct {
	Kind     Kind
	Code     string
	Category string
	Detail   string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message()
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Err != nil && !strings.Contains(msg, e.Err.Error()) {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message renders the category-prefixed text downstream alerting expects,
// e.g. "BRAND | Missing definition."
func (e *Error) Message() string {
	detail := e.Detail
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if e.Category == "" {
		return detail
	}
	return e.Category + " | " + detail
}

func (e *Error) Issue() Issue {
	return Issue{Code: e.Code, Message: e.Message()}
}

// IsKind reports whether err wraps a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}

// UnrecognizedDateCode names the variant so a multi-variant SKU can be
// traced; an empty variant is left out.
func UnrecognizedDateCode(code, variant, dateCode string) *Error {
	detail := fmt.Sprintf("Unrecognized date code %q.", dateCode)
	if variant != "" {
		detail = fmt.Sprintf("Unrecognized date code %q on variant %q.", dateCode, variant)
	}
	return &Error{
		Kind:     KindUnrecognizedDateCode,
		Code:     code,
		Category: "DATE",
		Detail:   detail,
	}
}

// AIAnalysisFailed carries the provider failure (HTTP status, error name
// and message) in the reported message.
func AIAnalysisFailed(code string, err error) *Error {
	detail := "Analysis failed."
	if err != nil {
		detail = "Analysis failed: " + err.Error()
	}
	return &Error{
		Kind:     KindAIAnalysisFailed,
		Code:     code,
		Category: "AI",
		Detail:   detail,
		Err:      err,
	}
}

func MissingRecipientDefinition(code, recipientKey string) *Error {
	return &Error{
		Kind:     KindMissingRecipientDefinition,
		Code:     code,
		Category: "RECIPIENT",
		Detail:   fmt.Sprintf("Missing definition for %s.", recipientKey),
	}
}

// MissingReferenceDefinition is reported with the source code of the
// reference itself, so the merchandiser knows which metaobject to create.
func MissingReferenceDefinition(category, sourceCode string) *Error {
	return &Error{
		Kind:     KindMissingReferenceDefinition,
		Code:     sourceCode,
		Category: category,
		Detail:   "Missing definition.",
	}
}

func CatalogFailure(code, category, detail string, err error) *Error {
	return &Error{
		Kind:     KindCatalogFailure,
		Code:     code,
		Category: category,
		Detail:   detail,
		Err:      err,
	}
}
