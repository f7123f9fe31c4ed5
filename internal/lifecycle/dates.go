package lifecycle

import (
	"errors"
	"fmt"
	"time"
)

// DateCode is the two-digit enumerator SAP uses to say which lifecycle date
// a feed row carries.
type DateCode string

const (
	CodeActive               DateCode = "01"
	CodeNotLongerAvailable   DateCode = "02"
	CodeOutWhenOut           DateCode = "03"
	CodeVerifyBeforePurchase DateCode = "04"
	CodeTemporarilyOut       DateCode = "05"
	CodeIntro                DateCode = "06"
)

var ErrUnrecognizedDateCode = errors.New("unrecognized date code")

func (c DateCode) Valid() bool {
	switch c {
	case CodeActive, CodeNotLongerAvailable, CodeOutWhenOut,
		CodeVerifyBeforePurchase, CodeTemporarilyOut, CodeIntro:
		return true
	}
	return false
}

// Dates holds the lifecycle dates known for one (sku, variant). Every date is
// optional and kept at day granularity.
type Dates struct {
	Intro                *time.Time `json:"intro_date,omitempty"`
	Active               *time.Time `json:"active_date,omitempty"`
	NotLongerAvailable   *time.Time `json:"not_longer_available_date,omitempty"`
	OutWhenOut           *time.Time `json:"out_when_out_date,omitempty"`
	VerifyBeforePurchase *time.Time `json:"verify_before_purchase_date,omitempty"`
	TemporarilyOut       *time.Time `json:"temporarily_out_date,omitempty"`

	// LatestDateCode is an audit trail only; Resolve never reads it.
	LatestDateCode DateCode `json:"latest_date_code,omitempty"`
}

// Apply sets the date identified by code. An unknown code leaves d untouched
// and returns an error wrapping ErrUnrecognizedDateCode.
func (d *Dates) Apply(code DateCode, date time.Time) error {
	day := Day(date)
	switch code {
	case CodeActive:
		d.Active = &day
	case CodeNotLongerAvailable:
		d.NotLongerAvailable = &day
	case CodeOutWhenOut:
		d.OutWhenOut = &day
	case CodeVerifyBeforePurchase:
		d.VerifyBeforePurchase = &day
	case CodeTemporarilyOut:
		d.TemporarilyOut = &day
	case CodeIntro:
		d.Intro = &day
	default:
		return fmt.Errorf("%w: %q", ErrUnrecognizedDateCode, string(code))
	}
	d.LatestDateCode = code
	return nil
}

// Day truncates t to its calendar date, expressed as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, dd := t.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}
