package lifecycle

import "time"

// Status mirrors the Shopify product status values.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusActive   Status = "ACTIVE"
	StatusArchived Status = "ARCHIVED"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusDraft, StatusActive, StatusArchived:
		return Status(s), true
	}
	return "", false
}

type Reason string

const (
	ReasonNone      Reason = "NONE"
	ReasonActivated Reason = "ACTIVATED"
	ReasonArchived  Reason = "ARCHIVED"
)

type Resolution struct {
	Status       Status
	Transitioned bool
	Reason       Reason

	// Trigger is the code of the date that decided the status, empty when
	// no date was in the past.
	Trigger       DateCode
	EffectiveDate *time.Time
}

type candidate struct {
	code   DateCode
	date   *time.Time
	target Status
}

// Resolve picks the most recent date on or before now among the active,
// intro, not-longer-available and temporarily-out dates and maps it to a
// status. Ties keep the first candidate in that order. Intro and active are
// the same target on purpose.
func Resolve(d Dates, current Status, now time.Time) Resolution {
	today := Day(now)
	candidates := [...]candidate{
		{CodeActive, d.Active, StatusActive},
		{CodeIntro, d.Intro, StatusActive},
		{CodeNotLongerAvailable, d.NotLongerAvailable, StatusArchived},
		{CodeTemporarilyOut, d.TemporarilyOut, StatusArchived},
	}

	var winner *candidate
	for i := range candidates {
		c := &candidates[i]
		if c.date == nil || Day(*c.date).After(today) {
			continue
		}
		if winner == nil || Day(*c.date).After(Day(*winner.date)) {
			winner = c
		}
	}

	if winner == nil {
		return Resolution{Status: current, Reason: ReasonNone}
	}

	effective := Day(*winner.date)
	res := Resolution{
		Status:        winner.target,
		Reason:        ReasonNone,
		Trigger:       winner.code,
		EffectiveDate: &effective,
	}
	if winner.target != current {
		res.Transitioned = true
		if winner.target == StatusActive {
			res.Reason = ReasonActivated
		} else {
			res.Reason = ReasonArchived
		}
	}
	return res
}
