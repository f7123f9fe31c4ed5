package lifecycle

import (
	"errors"
	"testing"
	"time"
)

var now = time.Date(2025, time.March, 15, 14, 30, 0, 0, time.UTC)

func daysFromNow(n int) *time.Time {
	t := now.AddDate(0, 0, n)
	return &t
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name         string
		dates        Dates
		current      Status
		wantStatus   Status
		transitioned bool
		reason       Reason
	}{
		{
			name:       "no dates keeps current status",
			current:    StatusDraft,
			wantStatus: StatusDraft,
			reason:     ReasonNone,
		},
		{
			name:         "latest past date wins",
			dates:        Dates{Active: daysFromNow(-10), NotLongerAvailable: daysFromNow(-1)},
			current:      StatusActive,
			wantStatus:   StatusArchived,
			transitioned: true,
			reason:       ReasonArchived,
		},
		{
			name:         "declaration order does not matter",
			dates:        Dates{NotLongerAvailable: daysFromNow(-10), Active: daysFromNow(-1)},
			current:      StatusArchived,
			wantStatus:   StatusActive,
			transitioned: true,
			reason:       ReasonActivated,
		},
		{
			name:       "future dates are ignored",
			dates:      Dates{Active: daysFromNow(5)},
			current:    StatusDraft,
			wantStatus: StatusDraft,
			reason:     ReasonNone,
		},
		{
			name:         "intro alone activates",
			dates:        Dates{Intro: daysFromNow(-3)},
			current:      StatusDraft,
			wantStatus:   StatusActive,
			transitioned: true,
			reason:       ReasonActivated,
		},
		{
			name:         "temporarily out archives",
			dates:        Dates{Active: daysFromNow(-30), TemporarilyOut: daysFromNow(-2)},
			current:      StatusActive,
			wantStatus:   StatusArchived,
			transitioned: true,
			reason:       ReasonArchived,
		},
		{
			name:       "informational dates never resolve",
			dates:      Dates{OutWhenOut: daysFromNow(-1), VerifyBeforePurchase: daysFromNow(-1)},
			current:    StatusActive,
			wantStatus: StatusActive,
			reason:     ReasonNone,
		},
		{
			name:       "today counts as past",
			dates:      Dates{Active: daysFromNow(0)},
			current:    StatusActive,
			wantStatus: StatusActive,
			reason:     ReasonNone,
		},
		{
			name:       "later hour on the same day still counts",
			dates:      Dates{NotLongerAvailable: ptr(time.Date(2025, time.March, 15, 23, 59, 0, 0, time.UTC))},
			current:    StatusArchived,
			wantStatus: StatusArchived,
			reason:     ReasonNone,
		},
		{
			name:       "future archive does not undo a past activation",
			dates:      Dates{Active: daysFromNow(-5), NotLongerAvailable: daysFromNow(2)},
			current:    StatusActive,
			wantStatus: StatusActive,
			reason:     ReasonNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.dates, tt.current, now)
			if got.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", got.Status, tt.wantStatus)
			}
			if got.Transitioned != tt.transitioned {
				t.Errorf("transitioned = %v, want %v", got.Transitioned, tt.transitioned)
			}
			if got.Reason != tt.reason {
				t.Errorf("reason = %s, want %s", got.Reason, tt.reason)
			}
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	cases := []Dates{
		{},
		{Active: daysFromNow(-10), NotLongerAvailable: daysFromNow(-1)},
		{Intro: daysFromNow(-4), TemporarilyOut: daysFromNow(3)},
		{Active: daysFromNow(-2), Intro: daysFromNow(-2), NotLongerAvailable: daysFromNow(-2)},
		{OutWhenOut: daysFromNow(-9)},
	}
	for _, start := range []Status{StatusDraft, StatusActive, StatusArchived} {
		for i, d := range cases {
			first := Resolve(d, start, now)
			second := Resolve(d, first.Status, now)
			if second.Transitioned {
				t.Errorf("case %d from %s: second call transitioned to %s", i, start, second.Status)
			}
			if second.Status != first.Status {
				t.Errorf("case %d from %s: status drifted %s -> %s", i, start, first.Status, second.Status)
			}
		}
	}
}

func TestResolve_TieIsDeterministic(t *testing.T) {
	d := Dates{Active: daysFromNow(-2), NotLongerAvailable: daysFromNow(-2)}
	for i := 0; i < 5; i++ {
		got := Resolve(d, StatusDraft, now)
		if got.Status != StatusActive || got.Trigger != CodeActive {
			t.Fatalf("tie resolved to %s via %s, want ACTIVE via 01", got.Status, got.Trigger)
		}
	}
}

func TestDatesApply(t *testing.T) {
	var d Dates
	when := time.Date(2025, time.January, 2, 18, 0, 0, 0, time.UTC)

	if err := d.Apply(CodeActive, when); err != nil {
		t.Fatalf("Apply(01) error: %v", err)
	}
	if d.Active == nil || !d.Active.Equal(Day(when)) {
		t.Fatalf("active date = %v, want %v", d.Active, Day(when))
	}
	if d.LatestDateCode != CodeActive {
		t.Errorf("latest code = %q, want 01", d.LatestDateCode)
	}

	err := d.Apply(DateCode("99"), when)
	if !errors.Is(err, ErrUnrecognizedDateCode) {
		t.Fatalf("Apply(99) error = %v, want ErrUnrecognizedDateCode", err)
	}
	if d.LatestDateCode != CodeActive {
		t.Errorf("unknown code changed latest code to %q", d.LatestDateCode)
	}
	if d.Intro != nil || d.NotLongerAvailable != nil || d.TemporarilyOut != nil {
		t.Errorf("unknown code set a date: %+v", d)
	}

	if err := d.Apply(CodeIntro, when.AddDate(0, 1, 0)); err != nil {
		t.Fatalf("Apply(06) error: %v", err)
	}
	if d.Intro == nil || d.LatestDateCode != CodeIntro {
		t.Errorf("intro not recorded: %+v", d)
	}
}

func ptr(t time.Time) *time.Time { return &t }
